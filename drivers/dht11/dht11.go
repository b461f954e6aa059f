// Package dht11 provides a bit-banged driver for the DHT11 temperature/humidity
// sensor on a single data line.
//
//	d := dht11.New(pin, timer, irq)
//	d.Configure()          // starts the timer, waits for sensor power-up
//	err := d.Read()        // one full start/ack/40-bit/checksum cycle
//
// The driver needs a free-running timer that ticks once per microsecond and a
// way to disable interrupts globally. From the rising edge of the start signal
// until the frame is resolved, interrupts stay disabled; every exit path
// restores them.
//
// NOTE: the sensor needs at least one second between reads. The driver does
// not enforce this; callers must space their reads.
package dht11

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Protocol timings (per datasheet / common driver practice).
const (
	defaultPowerOnDelay = 1200 * time.Millisecond
	defaultStartLow     = 18 * time.Millisecond
	defaultStartHighUs  = 30
	defaultTimeoutUs    = 1000
	defaultThresholdUs  = 50
	defaultTrailerUs    = 50
)

// Errors returned by Read.
var (
	// ErrNotResponding: no acknowledgment to the start signal.
	ErrNotResponding = errors.New("dht11: sensor not responding")
	// ErrFrameTimeout: a pulse during the data phase exceeded its timeout.
	ErrFrameTimeout = errors.New("dht11: frame timeout")
	// ErrChecksum: all 40 bits arrived but the checksum byte does not match.
	ErrChecksum = errors.New("dht11: checksum mismatch")
)

// Config controls protocol timing. All fields are optional; zero values select
// the datasheet defaults.
type Config struct {
	// PowerOnDelay is the blocking wait performed by Configure. Default 1200 ms.
	PowerOnDelay time.Duration
	// StartLow is how long the host holds the line low to wake the sensor.
	// Default 18 ms.
	StartLow time.Duration
	// StartHighUs is the busy-held high level after StartLow. Default 30 µs.
	StartHighUs uint16
	// TimeoutUs bounds every handshake and bit wait. Default 1000 µs.
	TimeoutUs uint16
	// ThresholdUs separates a 0 bit from a 1 bit: high > threshold is a 1.
	// Default 50 µs.
	ThresholdUs uint16
	// TrailerUs is the busy-delay after the last bit. Default 50 µs.
	TrailerUs uint16
	// Sleep is the millisecond-scale blocking delay. Default time.Sleep.
	Sleep func(time.Duration)
}

func (c *Config) applyDefaults() {
	if c.PowerOnDelay <= 0 {
		c.PowerOnDelay = defaultPowerOnDelay
	}
	if c.StartLow <= 0 {
		c.StartLow = defaultStartLow
	}
	if c.StartHighUs == 0 {
		c.StartHighUs = defaultStartHighUs
	}
	if c.TimeoutUs == 0 {
		c.TimeoutUs = defaultTimeoutUs
	}
	if c.ThresholdUs == 0 {
		c.ThresholdUs = defaultThresholdUs
	}
	if c.TrailerUs == 0 {
		c.TrailerUs = defaultTrailerUs
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// Device is a DHT11 bound to one data line and one microsecond timer.
// It is not safe for concurrent use.
type Device struct {
	line  line
	timer Timer
	irq   Interrupts

	cfg        Config
	configured bool

	humidity    uint8
	temperature uint8
	frame       Frame // last checksum-valid frame
}

var _ drivers.Sensor = (*Device)(nil)

// New binds a DHT11 to its data line, timer and interrupt controller.
// It does not touch the hardware; see Configure.
func New(pin Pin, timer Timer, irq Interrupts) Device {
	return Device{
		line:  line{pin: pin},
		timer: timer,
		irq:   irq,
	}
}

// Configure applies optional config, starts the timer and blocks for the
// sensor's power-on stabilisation period. It may be called with no cfg.
func (d *Device) Configure(cfgs ...Config) {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	c.applyDefaults()
	d.cfg = c
	d.configured = true

	d.timer.Start()
	d.cfg.Sleep(d.cfg.PowerOnDelay)
}

// Read performs one full measurement. On success the cached humidity and
// temperature are replaced; on any error they are left as they were.
func (d *Device) Read() error {
	if !d.configured {
		d.Configure()
	}
	f, err := d.readFrame()
	if err != nil {
		return err
	}
	if !f.Valid() {
		return ErrChecksum
	}
	d.frame = f
	d.humidity = f.Humidity()
	d.temperature = f.Temperature()
	return nil
}

// Update implements drivers.Sensor. Any request that includes temperature or
// humidity triggers a Read; other measurements are ignored.
func (d *Device) Update(which drivers.Measurement) error {
	if which&(drivers.Temperature|drivers.Humidity) == 0 {
		return nil
	}
	return d.Read()
}

// Humidity returns the last good relative humidity in whole percent.
func (d *Device) Humidity() uint8 { return d.humidity }

// Temperature returns the last good temperature in whole °C.
func (d *Device) Temperature() uint8 { return d.temperature }

// DeciRelHumidity returns tenths of %RH.
func (d *Device) DeciRelHumidity() int32 { return int32(d.humidity) * 10 }

// DeciCelsius returns tenths of °C.
func (d *Device) DeciCelsius() int32 { return int32(d.temperature) * 10 }

// LastFrame returns the raw bytes of the last checksum-valid frame, including
// the fractional bytes the DHT11 reports as zero.
func (d *Device) LastFrame() Frame { return d.frame }
