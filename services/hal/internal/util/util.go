// services/hal/internal/util/util.go
package util

import (
	"fmt"
	"time"

	"dht11-go/x/jsonx"
	"dht11-go/x/mathx"
)

func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// DecodeJSON decodes a config or control payload into dst.
func DecodeJSON[T any](src any, dst *T) error { return jsonx.Decode(src, dst) }

func Errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func ClampDuration(d, lo, hi time.Duration) time.Duration { return mathx.Clamp(d, lo, hi) }
