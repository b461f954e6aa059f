// services/hal/internal/devices/dht11/adaptor.go
package dht11

import (
	"context"
	"errors"
	"sync"
	"time"

	dhtdrv "dht11-go/drivers/dht11"
	"dht11-go/errcode"
	"dht11-go/services/hal/internal/consts"
	"dht11-go/services/hal/internal/halcore"
	"dht11-go/services/hal/internal/registry"
	"dht11-go/services/hal/internal/util"
	"dht11-go/types"
)

// Register this device type with the registry.
func init() {
	registry.RegisterBuilder(consts.TypeDHT11, builder{})
}

const (
	defaultSpacing = time.Second
	maxSpacing     = time.Minute
	ctrlLastFrame  = "last_frame"
)

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	var p types.DHT11Params
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, errcode.Wrap(errcode.InvalidParams, "dht11.build", err)
	}
	if in.Platform.Pins == nil || in.Platform.Timer == nil || in.Platform.IRQ == nil {
		return registry.BuildOutput{}, errcode.HALNotReady
	}
	gp, ok := in.Platform.Pins.ByNumber(p.Pin)
	if !ok {
		return registry.BuildOutput{}, errcode.UnknownPin
	}

	period := time.Duration(p.IntervalMs) * time.Millisecond
	if period == 0 {
		period = consts.DefaultPeriodMs * time.Millisecond
	}
	period = util.ClampDuration(period, consts.MinPeriodMs*time.Millisecond, consts.MaxPeriodMs*time.Millisecond)

	spacing := time.Duration(p.MinSpacingMs) * time.Millisecond
	if spacing == 0 {
		spacing = defaultSpacing
	}
	spacing = util.ClampDuration(spacing, time.Millisecond, maxSpacing)

	ad := newAdaptor(in.DeviceID, gp, in.Platform, spacing)
	return registry.BuildOutput{
		Adaptor:     ad,
		WorkerID:    in.Platform.TimerID,
		SampleEvery: period,
		Pin:         p.Pin,
	}, nil
}

// pinLine presents a halcore.GPIOPin as the driver's open-drain style line.
// Releasing the line relies on the external pull-up.
type pinLine struct{ p halcore.GPIOPin }

func (l pinLine) Output()       { _ = l.p.ConfigureOutput(true) }
func (l pinLine) Input()        { _ = l.p.ConfigureInput(halcore.PullNone) }
func (l pinLine) Set(high bool) { l.p.Set(high) }
func (l pinLine) Get() bool     { return l.p.Get() }

type adaptor struct {
	id      string
	pin     int
	sleep   func(time.Duration)
	spacing time.Duration
	now     func() time.Time

	mu         sync.Mutex
	dev        dhtdrv.Device
	configured bool
	lastRead   time.Time // zero until the first attempt
	lastGood   time.Time
}

func newAdaptor(id string, gp halcore.GPIOPin, pl halcore.Platform, spacing time.Duration) *adaptor {
	return &adaptor{
		id:      id,
		pin:     gp.Number(),
		sleep:   pl.Sleep,
		spacing: spacing,
		now:     time.Now,
		dev:     dhtdrv.New(pinLine{gp}, pl.Timer, pl.IRQ),
	}
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	return []halcore.CapInfo{
		{Kind: string(types.KindTemperature), Info: types.Info{
			SchemaVersion: 1, Driver: consts.TypeDHT11,
			Detail: types.TemperatureInfo{Sensor: consts.TypeDHT11, Pin: a.pin, Unit: "C"},
		}},
		{Kind: string(types.KindHumidity), Info: types.Info{
			SchemaVersion: 1, Driver: consts.TypeDHT11,
			Detail: types.HumidityInfo{Sensor: consts.TypeDHT11, Pin: a.pin, Unit: "%RH"},
		}},
	}
}

// Trigger reports how long until the sensor may be read again.
func (a *adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining(), nil
}

func (a *adaptor) remaining() time.Duration {
	if a.lastRead.IsZero() {
		return 0
	}
	if d := a.spacing - a.now().Sub(a.lastRead); d > 0 {
		return d
	}
	return 0
}

// Collect performs one full frame read. It blocks for the start signal and,
// on first use, the sensor's power-on settling time.
func (a *adaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remaining() > 0 {
		return nil, halcore.ErrNotReady
	}
	if !a.configured {
		a.dev.Configure(dhtdrv.Config{Sleep: a.sleep})
		a.configured = true
	}
	err := a.dev.Read()
	a.lastRead = a.now()
	if err != nil {
		return nil, mapReadErr(err)
	}
	a.lastGood = a.lastRead

	ts := a.lastRead.UnixMilli()
	return halcore.Sample{
		{Kind: string(types.KindTemperature), Payload: types.TemperatureValue{DeciC: int16(a.dev.DeciCelsius())}, TsMs: ts},
		{Kind: string(types.KindHumidity), Payload: types.HumidityValue{RHx100: uint16(a.dev.Humidity()) * 100}, TsMs: ts},
	}, nil
}

func mapReadErr(err error) error {
	switch {
	case errors.Is(err, dhtdrv.ErrNotResponding):
		return errcode.Wrap(errcode.NotResponding, "dht11.read", err)
	case errors.Is(err, dhtdrv.ErrFrameTimeout):
		return errcode.Wrap(errcode.FrameTimeout, "dht11.read", err)
	case errors.Is(err, dhtdrv.ErrChecksum):
		return errcode.Wrap(errcode.ChecksumMismatch, "dht11.read", err)
	}
	return errcode.Wrap(errcode.MapDriverErr(err), "dht11.read", err)
}

func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	if method != ctrlLastFrame {
		return nil, halcore.ErrUnsupported
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastGood.IsZero() {
		return nil, errcode.HALNotReady
	}
	return types.DHT11Frame{Bytes: a.dev.LastFrame(), TS: a.lastGood.UnixMilli()}, nil
}
