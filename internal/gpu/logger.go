//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"
)

// component tags every record of the GPU counter.
const component = "wgpu-count"

var counterLog atomic.Pointer[slog.Logger]

func init() {
	counterLog.Store(slog.New(slog.DiscardHandler))
}

// slogger returns the logger of the GPU counter.
func slogger() *slog.Logger { return counterLog.Load() }

// setLogger installs l, scoped to the counter component. A nil l silences
// the counter again.
func setLogger(l *slog.Logger) {
	if l == nil {
		counterLog.Store(slog.New(slog.DiscardHandler))
		return
	}
	counterLog.Store(l.With("component", component))
}
