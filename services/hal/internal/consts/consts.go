// services/hal/internal/consts/consts.go
package consts

// Top-level topics
const (
	TokConfig     = "config"
	TokHAL        = "hal"
	TokCapability = "capability"
	TokInfo       = "info"
	TokState      = "state"
	TokValue      = "value"
	TokControl    = "control"
)

// Control verbs
const (
	CtrlReadNow = "read_now"
	CtrlSetRate = "set_rate"
)

// Device types
const (
	TypeDHT11 = "dht11"
)

// Sampling limits for single-wire sensors (datasheet: >= 1 s between reads).
const (
	MinPeriodMs     = 1000
	MaxPeriodMs     = 3_600_000
	DefaultPeriodMs = 2000
)
