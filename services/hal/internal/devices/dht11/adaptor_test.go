//go:build !rp2040 && !rp2350

package dht11

import (
	"context"
	"errors"
	"testing"
	"time"

	"dht11-go/errcode"
	"dht11-go/services/hal/internal/consts"
	"dht11-go/services/hal/internal/halcore"
	"dht11-go/services/hal/internal/platform"
	"dht11-go/services/hal/internal/registry"
	"dht11-go/types"
)

func build(t *testing.T, h *platform.Host, params any) (*adaptor, registry.BuildOutput) {
	t.Helper()
	b, ok := registry.Lookup(consts.TypeDHT11)
	if !ok {
		t.Fatal("dht11 builder not registered")
	}
	out, err := b.Build(registry.BuildInput{
		Ctx:        context.Background(),
		Platform:   h.Platform(),
		DeviceID:   "dht0",
		Type:       consts.TypeDHT11,
		ParamsJSON: params,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return out.Adaptor.(*adaptor), out
}

func TestBuildDefaults(t *testing.T) {
	h := platform.NewHost()
	ad, out := build(t, h, types.DHT11Params{Pin: 15})
	if out.WorkerID != "timer0" || out.Pin != 15 {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.SampleEvery != consts.DefaultPeriodMs*time.Millisecond {
		t.Fatalf("SampleEvery = %v", out.SampleEvery)
	}
	if ad.spacing != time.Second {
		t.Fatalf("spacing = %v", ad.spacing)
	}
	caps := ad.Capabilities()
	if len(caps) != 2 || caps[0].Kind != "temperature" || caps[1].Kind != "humidity" {
		t.Fatalf("caps = %+v", caps)
	}
}

func TestBuildClampsAndMapParams(t *testing.T) {
	h := platform.NewHost()
	_, out := build(t, h, map[string]any{"pin": 3, "interval_ms": 10})
	if out.SampleEvery != time.Second {
		t.Fatalf("SampleEvery = %v, want clamped to 1s", out.SampleEvery)
	}
	_, out = build(t, h, `{"pin": 3, "interval_ms": 99999999}`)
	if out.SampleEvery != time.Hour {
		t.Fatalf("SampleEvery = %v, want clamped to 1h", out.SampleEvery)
	}
}

func TestBuildErrors(t *testing.T) {
	h := platform.NewHost()
	b, _ := registry.Lookup(consts.TypeDHT11)

	_, err := b.Build(registry.BuildInput{Platform: h.Platform(), DeviceID: "x", ParamsJSON: types.DHT11Params{Pin: 99}})
	if errcode.Of(err) != errcode.UnknownPin {
		t.Fatalf("err = %v, want unknown_pin", err)
	}
	_, err = b.Build(registry.BuildInput{Platform: h.Platform(), DeviceID: "x", ParamsJSON: `{"pin":`})
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v, want invalid_params", err)
	}
	_, err = b.Build(registry.BuildInput{DeviceID: "x", ParamsJSON: types.DHT11Params{Pin: 1}})
	if errcode.Of(err) != errcode.HALNotReady {
		t.Fatalf("err = %v, want hal_not_ready", err)
	}
}

func TestCollectPublishesTypedValues(t *testing.T) {
	h := platform.NewHost()
	sim, _ := h.Pins.Sim(15)
	sim.SetFrame([5]byte{0x32, 0x00, 0x15, 0x00, 0x47})
	ad, _ := build(t, h, types.DHT11Params{Pin: 15})

	if d, _ := ad.Trigger(context.Background()); d != 0 {
		t.Fatalf("first Trigger wait = %v", d)
	}
	s, err := ad.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(s) != 2 {
		t.Fatalf("sample = %+v", s)
	}
	if v := s[0].Payload.(types.TemperatureValue); v.DeciC != 210 {
		t.Fatalf("temperature = %+v", v)
	}
	if v := s[1].Payload.(types.HumidityValue); v.RHx100 != 5000 {
		t.Fatalf("humidity = %+v", v)
	}
	if !h.IRQ.Enabled() {
		t.Fatal("interrupts left disabled")
	}

	res, err := ad.Control("temperature", ctrlLastFrame, nil)
	if err != nil {
		t.Fatalf("last_frame: %v", err)
	}
	if f := res.(types.DHT11Frame); f.Bytes != [5]byte{0x32, 0x00, 0x15, 0x00, 0x47} {
		t.Fatalf("last frame = %x", f.Bytes)
	}
}

func TestCollectEnforcesSpacing(t *testing.T) {
	h := platform.NewHost()
	ad, _ := build(t, h, types.DHT11Params{Pin: 4})
	now := time.Unix(1000, 0)
	ad.now = func() time.Time { return now }

	if _, err := ad.Collect(context.Background()); err != nil {
		t.Fatalf("first collect: %v", err)
	}
	now = now.Add(400 * time.Millisecond)
	if d, _ := ad.Trigger(context.Background()); d != 600*time.Millisecond {
		t.Fatalf("Trigger wait = %v, want 600ms", d)
	}
	if _, err := ad.Collect(context.Background()); !errors.Is(err, halcore.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	now = now.Add(600 * time.Millisecond)
	if _, err := ad.Collect(context.Background()); err != nil {
		t.Fatalf("collect after spacing: %v", err)
	}
}

func TestCollectMapsDriverErrors(t *testing.T) {
	cases := []struct {
		name  string
		fault func(s *platform.SimPin)
		want  errcode.Code
	}{
		{"absent", func(s *platform.SimPin) { s.SetAbsent(true) }, errcode.NotResponding},
		{"stall", func(s *platform.SimPin) { s.SetStallAfter(12) }, errcode.FrameTimeout},
		{"checksum", func(s *platform.SimPin) { s.SetFrame([5]byte{0x32, 0, 0x15, 0, 0x48}) }, errcode.ChecksumMismatch},
	}
	for _, c := range cases {
		h := platform.NewHost()
		sim, _ := h.Pins.Sim(7)
		c.fault(sim)
		ad, _ := build(t, h, types.DHT11Params{Pin: 7, MinSpacingMs: 1})

		_, err := ad.Collect(context.Background())
		if errcode.Of(err) != c.want {
			t.Fatalf("%s: err = %v, want %s", c.name, err, c.want)
		}
		if !h.IRQ.Enabled() {
			t.Fatalf("%s: interrupts left disabled", c.name)
		}
		if _, err := ad.Control("humidity", ctrlLastFrame, nil); errcode.Of(err) != errcode.HALNotReady {
			t.Fatalf("%s: last_frame before any good read: %v", c.name, err)
		}
	}
}

func TestControlUnsupported(t *testing.T) {
	h := platform.NewHost()
	ad, _ := build(t, h, types.DHT11Params{Pin: 1})
	if _, err := ad.Control("temperature", "calibrate", nil); !errors.Is(err, halcore.ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
}
