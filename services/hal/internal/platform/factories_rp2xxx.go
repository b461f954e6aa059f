// services/hal/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"runtime/interrupt"
	"time"

	"dht11-go/services/hal/internal/halcore"
)

// -----------------------------------------------------------------------------
// Defaults used by hal.Run on Raspberry Pi Pico / Pico 2 (RP2 family)
// -----------------------------------------------------------------------------

// DefaultPlatform maps logical numbers directly to machine.Pin(n), matching
// Pico/Pico 2 GP numbering, and uses the global interrupt mask for critical
// sections.
func DefaultPlatform() halcore.Platform {
	return halcore.Platform{
		Pins:    rp2PinFactory{},
		Timer:   &monoTimer{},
		TimerID: "timer0",
		IRQ:     rp2IRQ{},
		Sleep:   time.Sleep,
	}
}

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	// Constrain to RP2's user GPIOs (GP0..GP28).
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull halcore.Pull) error {
	var mode machine.PinMode
	switch pull {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

type rp2IRQ struct{}

func (rp2IRQ) Disable() uintptr      { return uintptr(interrupt.Disable()) }
func (rp2IRQ) Restore(state uintptr) { interrupt.Restore(interrupt.State(state)) }
