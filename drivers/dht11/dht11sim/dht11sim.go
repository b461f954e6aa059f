// Package dht11sim simulates a DHT11 on a virtual microsecond clock.
//
// Every line read and every timer read advances the clock by one microsecond,
// which models the cost of polling and keeps busy-wait loops finite. Sleep
// advances the clock without polling. The sensor answers a start signal only
// if the host held the line low for at least 18 ms, exactly as the hardware
// does, and then plays back a scripted frame.
package dht11sim

import (
	"sync"
	"time"
)

// Nominal waveform timings in microseconds.
const (
	ResponseUs = 40 // rising edge of start signal to sensor pulling low
	AckLowUs   = 80
	AckHighUs  = 80
	BitLowUs   = 50
	ZeroHighUs = 26
	OneHighUs  = 70
	TrailerUs  = 50

	minStartLowUs = 18_000
	forever       = uint64(1) << 62
)

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

// Clock is a virtual microsecond clock. It also serves as a dht11.Timer and
// provides Sleep for dht11.Config.
type Clock struct {
	mu      sync.Mutex
	now     uint64
	base    uint64
	started bool
}

// Now returns the current virtual time in microseconds.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) tick() uint64 {
	c.mu.Lock()
	c.now++
	n := c.now
	c.mu.Unlock()
	return n
}

// Sleep advances the clock by d.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now += uint64(d / time.Microsecond)
	c.mu.Unlock()
}

func (c *Clock) Start() {
	c.mu.Lock()
	c.started = true
	c.base = c.now
	c.mu.Unlock()
}

func (c *Clock) Reset() {
	c.mu.Lock()
	c.base = c.now
	c.mu.Unlock()
}

func (c *Clock) Elapsed() uint16 {
	c.mu.Lock()
	c.now++
	v := uint16(c.now - c.base)
	c.mu.Unlock()
	return v
}

// Started reports whether Start has been called.
func (c *Clock) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// ---------------------------------------------------------------------------
// Interrupts
// ---------------------------------------------------------------------------

// IRQ counts interrupt disable depth.
type IRQ struct {
	mu       sync.Mutex
	depth    int
	disables int
}

func (q *IRQ) Disable() uintptr {
	q.mu.Lock()
	defer q.mu.Unlock()
	prev := q.depth
	q.depth++
	q.disables++
	return uintptr(prev)
}

func (q *IRQ) Restore(state uintptr) {
	q.mu.Lock()
	q.depth = int(state)
	q.mu.Unlock()
}

// Enabled reports whether every Disable has been matched by a Restore.
func (q *IRQ) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth == 0
}

// Disables returns how many times Disable was called.
func (q *IRQ) Disables() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.disables
}

// ---------------------------------------------------------------------------
// Sensor
// ---------------------------------------------------------------------------

type segment struct {
	high bool
	us   uint64
}

// Sensor is a simulated DHT11 attached to a single data line. It implements
// dht11.Pin.
type Sensor struct {
	clk *Clock

	mu        sync.Mutex
	frame     [5]byte
	absent    bool
	stuckLow  bool
	stuckHigh bool // line held high after the ack low
	stallAt   int  // >0: line held low forever after this many bits
	highAt    int  // >0: high phase of bit highAt-1 never ends
	zeroUs    uint64
	oneUs     uint64

	output bool
	driven bool
	fallAt uint64
	riseAt uint64
	sched  []segment
	starts int
}

// New returns a sensor on clk reporting 0 % / 0 °C with a valid checksum.
func New(clk *Clock) *Sensor {
	return &Sensor{
		clk:    clk,
		driven: true,
		zeroUs: ZeroHighUs,
		oneUs:  OneHighUs,
	}
}

// Frame returns a frame with the given integral values and a valid checksum.
func Frame(humidity, temperature uint8) [5]byte {
	return [5]byte{humidity, 0, temperature, 0, humidity + temperature}
}

// SetFrame sets the raw 5 bytes sent on the next start signal.
func (s *Sensor) SetFrame(f [5]byte) {
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
}

// SetReading is SetFrame(Frame(humidity, temperature)).
func (s *Sensor) SetReading(humidity, temperature uint8) { s.SetFrame(Frame(humidity, temperature)) }

// SetAbsent makes the sensor ignore start signals.
func (s *Sensor) SetAbsent(v bool) {
	s.mu.Lock()
	s.absent = v
	s.mu.Unlock()
}

// SetStuckLow makes the sensor pull the line low on ack and never release it.
func (s *Sensor) SetStuckLow(v bool) {
	s.mu.Lock()
	s.stuckLow = v
	s.mu.Unlock()
}

// SetStallAfter makes the sensor hold the line low forever after n data bits.
// n <= 0 or n >= 40 disables the fault.
func (s *Sensor) SetStallAfter(n int) {
	s.mu.Lock()
	s.stallAt = n
	s.mu.Unlock()
}

// SetStuckHighAfterAck makes the sensor pull the line low for the ack and
// then leave it high instead of starting the data bits.
func (s *Sensor) SetStuckHighAfterAck(v bool) {
	s.mu.Lock()
	s.stuckHigh = v
	s.mu.Unlock()
}

// SetHighStallAt makes the high phase of data bit n (0..39) last forever.
// n < 0 or n >= 40 disables the fault.
func (s *Sensor) SetHighStallAt(n int) {
	s.mu.Lock()
	s.highAt = 0
	if n >= 0 && n < 40 {
		s.highAt = n + 1
	}
	s.mu.Unlock()
}

// SetBitTimings overrides the high-pulse widths used for 0 and 1 bits.
func (s *Sensor) SetBitTimings(zeroUs, oneUs uint64) {
	s.mu.Lock()
	s.zeroUs, s.oneUs = zeroUs, oneUs
	s.mu.Unlock()
}

// Starts returns how many valid start signals the sensor has answered.
func (s *Sensor) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Output implements dht11.Pin.
func (s *Sensor) Output() {
	s.mu.Lock()
	s.output = true
	s.mu.Unlock()
}

// Input implements dht11.Pin.
func (s *Sensor) Input() {
	s.mu.Lock()
	s.output = false
	s.mu.Unlock()
}

// Set implements dht11.Pin. Levels are ignored while the line is an input.
func (s *Sensor) Set(high bool) {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.output {
		return
	}
	switch {
	case s.driven && !high:
		s.fallAt = now
		s.sched = nil
	case !s.driven && high:
		if !s.absent && now-s.fallAt >= minStartLowUs {
			s.riseAt = now
			s.sched = s.schedule()
			s.starts++
		}
	}
	s.driven = high
}

// Get implements dht11.Pin.
func (s *Sensor) Get() bool {
	now := s.clk.tick()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output {
		return s.driven
	}
	if s.sched == nil {
		return true // pull-up
	}
	off := now - s.riseAt
	for _, seg := range s.sched {
		if off < seg.us {
			return seg.high
		}
		off -= seg.us
	}
	return true
}

func (s *Sensor) schedule() []segment {
	segs := make([]segment, 0, 4+2*40)
	segs = append(segs, segment{true, ResponseUs})
	if s.stuckLow {
		return append(segs, segment{false, forever})
	}
	if s.stuckHigh {
		return append(segs, segment{false, AckLowUs}, segment{true, forever})
	}
	segs = append(segs, segment{false, AckLowUs}, segment{true, AckHighUs})
	for i := 0; i < 40; i++ {
		if s.stallAt > 0 && i == s.stallAt {
			return append(segs, segment{false, forever})
		}
		if s.highAt > 0 && i == s.highAt-1 {
			return append(segs, segment{false, BitLowUs}, segment{true, forever})
		}
		high := s.zeroUs
		if s.frame[i/8]>>(7-uint(i%8))&1 == 1 {
			high = s.oneUs
		}
		segs = append(segs, segment{false, BitLowUs}, segment{true, high})
	}
	return append(segs, segment{false, TrailerUs})
}
