package dht11

// Frame is one 40-bit transmission: integral RH, decimal RH, integral T,
// decimal T, checksum. On the DHT11 both decimal bytes read as zero.
type Frame [5]byte

// Checksum returns the low 8 bits of the sum of the four data bytes.
func (f Frame) Checksum() byte { return f[0] + f[1] + f[2] + f[3] }

// Valid reports whether the checksum byte matches the data bytes.
func (f Frame) Valid() bool { return f.Checksum() == f[4] }

func (f Frame) Humidity() uint8    { return f[0] }
func (f Frame) Temperature() uint8 { return f[2] }

// decodeBit maps the duration of a bit's high pulse to its value. About
// 26-28 µs encodes 0 and about 70 µs encodes 1; a pulse exactly at the
// threshold is a 0.
func decodeBit(highUs, thresholdUs uint16) byte {
	if highUs > thresholdUs {
		return 1
	}
	return 0
}

// readFrame runs the start/ack handshake and captures 40 bits, MSB first.
// It does not check the checksum.
func (d *Device) readFrame() (Frame, error) {
	var f Frame
	timeout := d.cfg.TimeoutUs

	// Start: hold low long enough for the sensor to notice.
	d.line.drive(false)
	d.cfg.Sleep(d.cfg.StartLow)

	// Bus: LOW. Timing-critical from here on.
	cs := enterCritical(d.irq)
	defer cs.exit()

	d.line.drive(true)
	d.delay(d.cfg.StartHighUs)
	d.line.release()

	// Ack: sensor pulls low (~80 µs), then high (~80 µs).
	if d.waitWhile(true, timeout) >= timeout {
		return f, ErrNotResponding
	}
	if d.waitWhile(false, timeout) >= timeout {
		return f, ErrNotResponding
	}
	// Bus: HIGH until the first bit's low phase.
	if d.waitWhile(true, timeout) >= timeout {
		return f, ErrFrameTimeout
	}

	for i := range f {
		for bit := 0; bit < 8; bit++ {
			if d.waitWhile(false, timeout) >= timeout {
				return f, ErrFrameTimeout
			}
			high := d.waitWhile(true, timeout)
			if high >= timeout {
				return f, ErrFrameTimeout
			}
			f[i] = f[i]<<1 | decodeBit(high, d.cfg.ThresholdUs)
		}
	}

	// After the last bit the sensor holds the line low for ~50 µs and then
	// lets the pull-up return it to idle.
	d.delay(d.cfg.TrailerUs)
	return f, nil
}
