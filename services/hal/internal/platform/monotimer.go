// services/hal/internal/platform/monotimer.go
package platform

import "time"

// monoTimer derives a 16-bit microsecond counter from the monotonic clock.
// On RP2 TinyGo reads the hardware timer directly, so this keeps working
// with interrupts disabled.
type monoTimer struct {
	base time.Time
}

func (t *monoTimer) Start() { t.base = time.Now() }
func (t *monoTimer) Reset() { t.base = time.Now() }

func (t *monoTimer) Elapsed() uint16 {
	return uint16(time.Since(t.base) / time.Microsecond)
}
