package devicefactory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
	"github.com/srg/blebat/internal/device/bluez"
	"github.com/srg/blebat/internal/device/go-ble"
	"github.com/srg/blebat/pkg/config"
)

// AdapterFactory opens the adapter of the backend cfg selects.
// This is a variable so that it can be overridden in tests.
var AdapterFactory = func(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (device.Adapter, error) {
	switch cfg.Backend {
	case config.BackendBlueZ:
		adapter, err := bluez.Open(ctx, cfg.Adapter, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case config.BackendHCI:
		adapter, err := goble.Open(goble.Options{
			DeviceID:   cfg.HCI.DeviceID,
			ScanWindow: cfg.HCI.ScanWindow,
		}, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("%w: backend %q", device.ErrUnsupported, cfg.Backend)
	}
}

// Opener binds cfg and logger into a device.Opener. Each call goes through
// AdapterFactory again, so every operation gets a fresh adapter.
func Opener(cfg *config.Config, logger *logrus.Logger) device.Opener {
	return func(ctx context.Context) (device.Adapter, error) {
		return AdapterFactory(ctx, cfg, logger)
	}
}
