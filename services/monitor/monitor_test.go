package monitor

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dht11-go/bus"
	"dht11-go/types"
)

type syncBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *syncBuf) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func (w *syncBuf) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}

func TestReadingLine(t *testing.T) {
	got := string(Reading(nil, 0, types.TemperatureValue{DeciC: 210}, types.HumidityValue{RHx100: 5000}))
	if got != "dht0 t=21.0C rh=50.00%\n" {
		t.Fatalf("got %q", got)
	}
}

func TestStateLine(t *testing.T) {
	got := string(State(nil, "temperature", 1, types.CapabilityState{Link: types.LinkDegraded, Error: "checksum_mismatch"}))
	if got != "temperature/1 degraded checksum_mismatch\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFrameLine(t *testing.T) {
	got := string(Frame(nil, types.DHT11Frame{Bytes: [5]byte{0x32, 0x00, 0x15, 0x00, 0x47}}))
	if got != "frame 32 00 15 00 47\n" {
		t.Fatalf("got %q", got)
	}
}

func waitContains(t *testing.T, w *syncBuf, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(w.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output %q does not contain %q", w.String(), want)
}

func waitLines(t *testing.T, w *syncBuf, n int) []string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if out := w.String(); strings.Count(out, "\n") >= n {
			return strings.SplitAfter(strings.TrimSuffix(out, "\n"), "\n")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("want %d lines, got %q", n, w.String())
	return nil
}

func startMonitor(t *testing.T, b *bus.Bus) (*syncBuf, context.CancelFunc) {
	t.Helper()
	out := &syncBuf{}
	ctx, cancel := context.WithCancel(context.Background())
	New(out).Start(ctx, b.NewConnection("mon"))
	time.Sleep(20 * time.Millisecond) // let the monitor subscribe
	return out, cancel
}

func publishSample(c *bus.Connection, id int, deciC int16, rh uint16) {
	c.Publish(c.NewMessage(bus.T("hal", "capability", "temperature", id, "value"), types.TemperatureValue{DeciC: deciC}, false))
	c.Publish(c.NewMessage(bus.T("hal", "capability", "humidity", id, "value"), types.HumidityValue{RHx100: rh}, false))
}

func TestServicePairsTemperatureWithHumidity(t *testing.T) {
	b := bus.NewBus(8)
	pub := b.NewConnection("hal")
	out, cancel := startMonitor(t, b)
	defer cancel()

	publishSample(pub, 0, 210, 5000)
	waitLines(t, out, 1)
	publishSample(pub, 0, 230, 4100)
	got := waitLines(t, out, 2)

	time.Sleep(30 * time.Millisecond)
	if out.String() != "dht0 t=21.0C rh=50.00%\ndht0 t=23.0C rh=41.00%\n" {
		t.Fatalf("unexpected output %q (lines %q)", out.String(), got)
	}
}

func TestServiceIgnoresUnpairedHumidity(t *testing.T) {
	b := bus.NewBus(8)
	pub := b.NewConnection("hal")
	out, cancel := startMonitor(t, b)
	defer cancel()

	pub.Publish(pub.NewMessage(bus.T("hal", "capability", "humidity", 1, "value"), types.HumidityValue{RHx100: 3300}, false))
	publishSample(pub, 1, 195, 3400)
	waitLines(t, out, 1)
	time.Sleep(30 * time.Millisecond)
	if got := out.String(); got != "dht1 t=19.5C rh=34.00%\n" {
		t.Fatalf("got %q", got)
	}
}

func TestServiceIntervalFromJSONConfig(t *testing.T) {
	for name, cfg := range map[string]any{
		"string": `{"interval_ms":20}`,
		"bytes":  []byte(`{"interval_ms":20}`),
		"map":    map[string]any{"interval_ms": 20},
		"typed":  Config{IntervalMs: 20},
	} {
		t.Run(name, func(t *testing.T) {
			b := bus.NewBus(8)
			pub := b.NewConnection("cfg")
			pub.Publish(pub.NewMessage(bus.T("config", "monitor"), cfg, true))
			out, cancel := startMonitor(t, b)
			defer cancel()

			publishSample(pub, 0, 220, 4500)
			lines := waitLines(t, out, 2)
			for _, l := range lines {
				if l != "dht0 t=22.0C rh=45.00%\n" {
					t.Fatalf("unexpected summary line %q", l)
				}
			}
		})
	}
}

func TestServiceWritesValuesAndFaults(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("mon")
	pub := b.NewConnection("hal")
	out := &syncBuf{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(out).Start(ctx, conn)
	time.Sleep(20 * time.Millisecond) // let the monitor subscribe

	pub.Publish(pub.NewMessage(bus.T("hal", "capability", "temperature", 0, "value"), types.TemperatureValue{DeciC: 230}, false))
	pub.Publish(pub.NewMessage(bus.T("hal", "capability", "humidity", 0, "value"), types.HumidityValue{RHx100: 4100}, false))
	waitContains(t, out, "dht0 t=23.0C rh=41.00%")

	pub.Publish(pub.NewMessage(bus.T("hal", "capability", "humidity", 0, "state"),
		types.CapabilityState{Link: types.LinkDegraded, Error: "frame_timeout"}, true))
	waitContains(t, out, "humidity/0 degraded frame_timeout")
}
