//go:build pico && pico_dht11

package platform

import "dht11-go/types"

// Pico with one DHT11 on GP15 (10k pull-up to 3V3).
func selectedSetup() types.HALConfig {
	return types.HALConfig{
		Devices: []types.HALDevice{{
			ID:     "dht0",
			Type:   "dht11",
			Params: types.DHT11Params{Pin: 15, IntervalMs: 2000},
		}},
	}
}
