package platform

import "dht11-go/types"

// InitialConfig returns the board setup selected by build tags, or an empty
// config when none is selected. hal.Run applies it before any config/hal
// message arrives.
func InitialConfig() types.HALConfig { return selectedSetup() }
