// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Batch outcomes reported by Metrics.
const (
	outcomeCompleted = "completed"
	outcomeCanceled  = "canceled"
	outcomeFailed    = "failed"
)

// Metrics exports batch statistics to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	batches  *prometheus.CounterVec
	passes   *prometheus.CounterVec
	duration prometheus.Histogram
	pixels   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exposure",
			Name:      "batches_total",
			Help:      "Render batches by terminal outcome.",
		}, []string{"outcome"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exposure",
			Name:      "passes_total",
			Help:      "Identity passes counted, by device.",
		}, []string{"device"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "exposure",
			Name:      "batch_duration_seconds",
			Help:      "Wall time from Execute to the end of the batch run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		pixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exposure",
			Name:      "pixels_counted_total",
			Help:      "Pixels scanned by the counting kernels.",
		}),
	}
	for _, c := range []prometheus.Collector{m.batches, m.passes, m.duration, m.pixels} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePass(d Device, pixels int) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(d.String()).Inc()
	m.pixels.Add(float64(pixels))
}

func (m *Metrics) observeBatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}
