// services/hal/internal/platform/sim.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"dht11-go/drivers/dht11/dht11sim"
	"dht11-go/services/hal/internal/halcore"
)

// The simulated platform puts a DHT11 on every GPIO, all sharing one virtual
// microsecond clock. Sleep advances that clock, so power-on and start-signal
// waits cost no wall time. It backs host builds and the HAL tests.

// Host bundles the simulated platform so tests can reach the sensors.
type Host struct {
	Clock *dht11sim.Clock
	IRQ   *dht11sim.IRQ
	Pins  *HostPinFactory
}

// NewHost creates an independent simulated platform.
func NewHost() *Host {
	clk := &dht11sim.Clock{}
	return &Host{
		Clock: clk,
		IRQ:   &dht11sim.IRQ{},
		Pins:  &HostPinFactory{clk: clk, pins: make(map[int]*SimPin)},
	}
}

// Platform returns the halcore view of h.
func (h *Host) Platform() halcore.Platform {
	return halcore.Platform{
		Pins:    h.Pins,
		Timer:   h.Clock,
		TimerID: "timer0",
		IRQ:     h.IRQ,
		Sleep:   h.Clock.Sleep,
	}
}

// SimPin adapts a simulated sensor line to halcore.GPIOPin.
type SimPin struct {
	*dht11sim.Sensor
	number int
}

func (p *SimPin) ConfigureInput(_ halcore.Pull) error {
	p.Input()
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.Output()
	p.Set(initial)
	return nil
}

func (p *SimPin) Number() int { return p.number }

// HostPinFactory returns stable *SimPin instances per number.
type HostPinFactory struct {
	clk  *dht11sim.Clock
	mu   sync.Mutex
	pins map[int]*SimPin
}

// Default reading reported by freshly created simulated sensors.
const (
	simHumidity    = 45
	simTemperature = 22
)

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	return f.Sim(n)
}

// Sim exposes the underlying *SimPin for tests (e.g. to inject faults).
func (f *HostPinFactory) Sim(n int) (*SimPin, bool) {
	if n < 0 || n > 63 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		s := dht11sim.New(f.clk)
		s.SetReading(simHumidity, simTemperature)
		p = &SimPin{Sensor: s, number: n}
		f.pins[n] = p
	}
	return p, true
}
