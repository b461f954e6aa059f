// services/hal/internal/halcore/types.go
package halcore

import (
	"context"
	"errors"
	"time"
)

// Reading is one datum for one capability kind.
type Reading struct {
	Kind    string // e.g. "temperature", "humidity"
	Payload any    // typed value, e.g. types.TemperatureValue
	TsMs    int64  // producer timestamp (ms)
}

// Sample is a batch collected together.
type Sample []Reading

// CapInfo describes one capability's retained info document.
type CapInfo struct {
	Kind string // capability kind
	Info any    // types.Info
}

// Adaptor abstracts a concrete device/driver. Must not own goroutines or the bus.
type Adaptor interface {
	ID() string
	Capabilities() []CapInfo
	// Split-phase measurement cycle. Trigger reports how long to wait before
	// Collect; Collect returns ErrNotReady to be retried after backoff.
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	Collect(ctx context.Context) (Sample, error)
	// Optional pass-through control for device-specific methods.
	Control(kind, method string, payload any) (result any, err error)
}

// WorkerConfig centralises timings and limits.
type WorkerConfig struct {
	TriggerTimeout time.Duration
	CollectTimeout time.Duration
	RetryBackoff   time.Duration
	MaxRetries     int
	InputQueueSize int
}

// MeasureReq asks a worker to service an adaptor.
type MeasureReq struct {
	ID      string
	Adaptor Adaptor
	Prio    bool // true for "read_now"
}

// Result emitted by a worker.
type Result struct {
	ID     string
	Sample Sample
	Err    error
}

var (
	// ErrNotReady signals the worker to retry Collect after backoff.
	ErrNotReady = errors.New("not ready")
	// ErrUnsupported for adaptor Control pass-through.
	ErrUnsupported = errors.New("unsupported")
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- Timing abstractions ----

// MicroTimer is a free-running 16-bit microsecond counter.
type MicroTimer interface {
	Start()
	Reset()
	Elapsed() uint16
}

// IRQControl disables and restores global interrupts (or the closest thing
// the platform offers).
type IRQControl interface {
	Disable() uintptr
	Restore(state uintptr)
}

// Platform bundles what device builders may claim from the target.
// All single-wire devices share Timer and IRQ, so reads must be serialised
// on TimerID.
type Platform struct {
	Pins    PinFactory
	Timer   MicroTimer
	TimerID string // worker key for everything that uses Timer
	IRQ     IRQControl
	Sleep   func(time.Duration)
}
