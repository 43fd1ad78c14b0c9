package exposure

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// mockCounter implements GPUCounter for testing.
type mockCounter struct {
	name     string
	initErr  error
	countErr error
	kernels  []Kernel

	mu     sync.Mutex
	closed bool
	calls  int
	logger *slog.Logger
}

func (m *mockCounter) Name() string { return m.name }

func (m *mockCounter) Init() error { return m.initErr }

func (m *mockCounter) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockCounter) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockCounter) SupportsKernel(k Kernel) bool {
	if m.kernels == nil {
		return true
	}
	for _, s := range m.kernels {
		if s == k {
			return true
		}
	}
	return false
}

// Count counts on the CPU so results can be compared with the real path.
func (m *mockCounter) Count(_ context.Context, _ Kernel, pixels []uint32, counts []uint32) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.countErr != nil {
		return m.countErr
	}
	clear(counts)
	for _, px := range pixels {
		if idx := decodeValue(px); idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return nil
}

func (m *mockCounter) countCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCounter) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

// resetGPUCounter clears the global counter state between tests.
func resetGPUCounter() {
	counterMu.Lock()
	counter = nil
	counterMu.Unlock()
}

// useGPUCounter installs c for the duration of the test.
func useGPUCounter(t *testing.T, c GPUCounter) {
	t.Helper()
	resetGPUCounter()
	if c != nil {
		if err := RegisterGPUCounter(c); err != nil {
			t.Fatalf("RegisterGPUCounter: %v", err)
		}
	}
	t.Cleanup(resetGPUCounter)
}

func TestRegisterGPUCounterNil(t *testing.T) {
	resetGPUCounter()

	err := RegisterGPUCounter(nil)
	if err == nil {
		t.Fatal("expected error when registering nil counter")
	}
	if err.Error() != "exposure: GPU counter must not be nil" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if GPUCounterFor() != nil {
		t.Error("counter should remain nil after failed registration")
	}
}

func TestRegisterGPUCounterInitError(t *testing.T) {
	resetGPUCounter()

	initErr := errors.New("GPU init failed")
	err := RegisterGPUCounter(&mockCounter{name: "failing", initErr: initErr})
	if !errors.Is(err, initErr) {
		t.Fatalf("RegisterGPUCounter() error = %v, want %v", err, initErr)
	}
	if ComputeSupported() {
		t.Error("ComputeSupported() = true after failed registration")
	}
}

func TestRegisterGPUCounterReplacesAndCloses(t *testing.T) {
	t.Cleanup(resetGPUCounter)
	resetGPUCounter()

	first := &mockCounter{name: "first"}
	second := &mockCounter{name: "second"}
	if err := RegisterGPUCounter(first); err != nil {
		t.Fatal(err)
	}
	if err := RegisterGPUCounter(second); err != nil {
		t.Fatal(err)
	}
	if !first.isClosed() {
		t.Error("replaced counter was not closed")
	}
	if second.isClosed() {
		t.Error("active counter was closed")
	}
	if got := GPUCounterFor(); got != second {
		t.Errorf("GPUCounterFor() = %v, want second", got)
	}
	if !ComputeSupported() {
		t.Error("ComputeSupported() = false with a registered counter")
	}
}

func TestKernelString(t *testing.T) {
	tests := []struct {
		k    Kernel
		want string
	}{
		{KernelAtomic, "atomic"},
		{KernelBanded, "banded"},
		{Kernel(9), "Kernel(9)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kernel(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
