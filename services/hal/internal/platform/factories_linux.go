// services/hal/internal/platform/factories_linux.go
//go:build linux && (arm || arm64) && !(rp2040 || rp2350)

package platform

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"dht11-go/services/hal/internal/halcore"
)

// DefaultPlatform uses periph.io for GPIO on Linux SBCs (Raspberry Pi and
// similar). If host.Init fails no pins resolve and builds report unknown_pin.
func DefaultPlatform() halcore.Platform {
	_, err := host.Init()
	return halcore.Platform{
		Pins:    periphPinFactory{ok: err == nil},
		Timer:   &monoTimer{},
		TimerID: "timer0",
		IRQ:     gcGuard{},
		Sleep:   time.Sleep,
	}
}

type periphPinFactory struct{ ok bool }

func (f periphPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if !f.ok || n < 0 {
		return nil, false
	}
	p := gpioreg.ByName("GPIO" + strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p, n: n}, true
}

type periphPin struct {
	p gpio.PinIO
	n int
}

func (r *periphPin) ConfigureInput(pull halcore.Pull) error {
	gp := gpio.Float
	switch pull {
	case halcore.PullUp:
		gp = gpio.PullUp
	case halcore.PullDown:
		gp = gpio.PullDown
	}
	return r.p.In(gp, gpio.NoEdge)
}

func (r *periphPin) ConfigureOutput(initial bool) error {
	return r.p.Out(gpio.Level(initial))
}

func (r *periphPin) Set(level bool) { _ = r.p.Out(gpio.Level(level)) }
func (r *periphPin) Get() bool      { return r.p.Read() == gpio.High }
func (r *periphPin) Number() int    { return r.n }

// gcGuard is the closest user space gets to disabling interrupts: pin the
// goroutine to its thread and stop the GC for the timing-critical window.
// The returned state is the previous GC percent.
type gcGuard struct{}

func (gcGuard) Disable() uintptr {
	runtime.LockOSThread()
	return uintptr(debug.SetGCPercent(-1))
}

func (gcGuard) Restore(state uintptr) {
	debug.SetGCPercent(int(state))
	runtime.UnlockOSThread()
}
