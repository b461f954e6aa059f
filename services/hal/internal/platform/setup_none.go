//go:build !(pico && pico_dht11)

package platform

import "dht11-go/types"

func selectedSetup() types.HALConfig { return types.HALConfig{} }
