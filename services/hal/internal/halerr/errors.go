// services/hal/internal/halerr/errors.go
package halerr

import "errors"

var (
	// Service/control plane
	ErrBusy           = errors.New("busy")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidCapAddr = errors.New("invalid_capability_address")
	ErrUnknownCap     = errors.New("unknown_capability")
	ErrNoAdaptor      = errors.New("no_adaptor")

	// Build/config
	ErrUnknownType = errors.New("unknown_device_type")
	ErrPinInUse    = errors.New("pin_in_use")

	// Generic / pass-through
	ErrUnsupported = errors.New("unsupported")
)
