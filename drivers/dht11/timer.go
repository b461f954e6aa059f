package dht11

// Timer is a free-running microsecond counter owned by the surrounding
// firmware. Elapsed wraps at 65536 µs; every wait in this driver is bounded
// well below that.
type Timer interface {
	// Start begins counting. Called once from Configure.
	Start()
	// Reset zeroes the counter and leaves it running.
	Reset()
	// Elapsed returns microseconds since the last Reset.
	Elapsed() uint16
}

// delay busy-holds for exactly us microseconds. Unlike waitWhile it does not
// look at the line.
func (d *Device) delay(us uint16) {
	d.timer.Reset()
	for d.timer.Elapsed() < us {
	}
}

// waitWhile polls the line until it leaves level or timeoutUs passes, and
// returns the elapsed time. Callers treat a result >= timeoutUs as a timeout.
func (d *Device) waitWhile(level bool, timeoutUs uint16) uint16 {
	d.timer.Reset()
	for d.line.level() == level {
		if d.timer.Elapsed() > timeoutUs {
			break
		}
	}
	return d.timer.Elapsed()
}
