package main

import (
	"context"
	"runtime"
	"time"

	"dht11-go/bus"
	"dht11-go/services/hal"
	"dht11-go/services/monitor"
	"dht11-go/types"
)

// Data line of the demo sensor (Pico GP15; GPIO15 on a Raspberry Pi).
const dhtPin = 15

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	halConn := b.NewConnection("hal")
	uiConn := b.NewConnection("ui")

	println("[main] starting monitor …")
	monitor.New(output()).Start(ctx, b.NewConnection("monitor"))

	println("[main] starting hal.Run …")
	go hal.Run(ctx, halConn)

	cfg := types.HALConfig{
		Devices: []types.HALDevice{{
			ID:     "dht0",
			Type:   "dht11",
			Params: types.DHT11Params{Pin: dhtPin, IntervalMs: 2000},
		}},
	}
	println("[main] publishing config/hal …")
	uiConn.Publish(uiConn.NewMessage(bus.T("config", "hal"), cfg, true))

	lastFrame := bus.T("hal", "capability", string(types.KindTemperature), 0, "control", "last_frame")
	var line [64]byte
	for {
		time.Sleep(10 * time.Second)

		rctx, cancel := context.WithTimeout(ctx, time.Second)
		reply, err := uiConn.RequestWait(rctx, uiConn.NewMessage(lastFrame, nil, false))
		cancel()
		switch {
		case err != nil:
			println("[main] last_frame error:", err.Error())
		default:
			switch p := reply.Payload.(type) {
			case types.DHT11Frame:
				print("[main] ", string(monitor.Frame(line[:0], p)))
			case types.ErrorReply:
				println("[main] last_frame:", p.Error)
			}
		}
		printMem()
	}
}

// printMem prints a compact snapshot of runtime memory stats.
// Uses builtin println to avoid fmt overhead/allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
