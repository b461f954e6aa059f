package types

// HAL configuration supplied on topic "config/hal".

type HALConfig struct {
	Devices []HALDevice `json:"devices"`
}

type HALDevice struct {
	ID     string `json:"id"`   // logical device id, e.g. "dht0"
	Type   string `json:"type"` // e.g. "dht11"
	Params any    `json:"params,omitempty"`
}

// DHT11Params configures a "dht11" device. Params may also arrive as a
// JSON-shaped map with the same keys.
type DHT11Params struct {
	Pin int `json:"pin"`
	// IntervalMs is the periodic sampling period. Default 2000, minimum 1000.
	IntervalMs uint32 `json:"interval_ms,omitempty"`
	// MinSpacingMs is the enforced gap between two reads of the same sensor.
	// Default 1000 (datasheet minimum).
	MinSpacingMs uint32 `json:"min_spacing_ms,omitempty"`
}
