// services/hal/internal/platform/factories_host.go
//go:build !rp2040 && !rp2350 && !(linux && (arm || arm64))

package platform

import "dht11-go/services/hal/internal/halcore"

// DefaultPlatform provides a simulated host platform.
func DefaultPlatform() halcore.Platform { return NewHost().Platform() }
