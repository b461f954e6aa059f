// services/hal/hal.go
package hal

import (
	"context"

	"dht11-go/bus"
	"dht11-go/services/hal/internal/consts"
	"dht11-go/services/hal/internal/halcore"
	"dht11-go/services/hal/internal/platform"
	"dht11-go/services/hal/internal/service"

	// Device builders register themselves.
	_ "dht11-go/services/hal/internal/devices/dht11"
)

// Run starts the HAL on this build's default platform and blocks until ctx
// is cancelled. A board setup selected by build tags is published to
// config/hal first; later configs replace it.
func Run(ctx context.Context, conn *bus.Connection) {
	if cfg := platform.InitialConfig(); len(cfg.Devices) > 0 {
		conn.Publish(conn.NewMessage(bus.T(consts.TokConfig, consts.TokHAL), cfg, true))
	}
	run(ctx, conn, platform.DefaultPlatform())
}

func run(ctx context.Context, conn *bus.Connection, pl halcore.Platform) {
	service.New(conn, pl).Run(ctx)
}
