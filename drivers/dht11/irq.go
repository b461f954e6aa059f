package dht11

// Interrupts disables and restores global interrupts. The shape matches
// TinyGo's runtime/interrupt: Disable returns the previous state, Restore puts
// it back.
type Interrupts interface {
	Disable() uintptr
	Restore(state uintptr)
}

// critical holds interrupts off until exit. exit is idempotent so it can be
// deferred and also called early.
type critical struct {
	irq   Interrupts
	state uintptr
	held  bool
}

func enterCritical(irq Interrupts) critical {
	return critical{irq: irq, state: irq.Disable(), held: true}
}

func (c *critical) exit() {
	if !c.held {
		return
	}
	c.held = false
	c.irq.Restore(c.state)
}
