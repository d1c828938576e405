package devicefactory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
	"github.com/srg/blebat/internal/device/bluez"
	"github.com/srg/blebat/internal/device/go-ble"
	"github.com/srg/blebat/internal/devicefactory"
	"github.com/srg/blebat/internal/testutils/mocks"
	"github.com/srg/blebat/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterFactory_SelectsBackend(t *testing.T) {
	errBus := errors.New("no system bus")
	errHCI := errors.New("can't init hci")

	origBus, origHCI := bluez.ConnectBus, goble.DeviceFactory
	t.Cleanup(func() {
		bluez.ConnectBus, goble.DeviceFactory = origBus, origHCI
	})
	bluez.ConnectBus = func() (bluez.Bus, error) { return nil, errBus }

	var hciOpts goble.Options
	goble.DeviceFactory = func(opts goble.Options) (ble.Device, error) {
		hciOpts = opts
		return nil, errHCI
	}

	cfg := config.DefaultConfig()
	logger := logrus.New()

	t.Run("bluez", func(t *testing.T) {
		cfg.Backend = config.BackendBlueZ

		adapter, err := devicefactory.AdapterFactory(context.Background(), cfg, logger)

		assert.Nil(t, adapter)
		assert.ErrorIs(t, err, errBus)
	})

	t.Run("hci", func(t *testing.T) {
		cfg.Backend = config.BackendHCI
		cfg.HCI.DeviceID = 1

		adapter, err := devicefactory.AdapterFactory(context.Background(), cfg, logger)

		assert.Nil(t, adapter)
		assert.ErrorIs(t, err, device.ErrAdapterNotFound)
		assert.Equal(t, goble.Options{DeviceID: 1, ScanWindow: cfg.HCI.ScanWindow}, hciOpts)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg.Backend = "winrt"

		adapter, err := devicefactory.AdapterFactory(context.Background(), cfg, logger)

		assert.Nil(t, adapter)
		assert.ErrorIs(t, err, device.ErrUnsupported)
		assert.EqualError(t, err, `unsupported: backend "winrt"`)
	})
}

func TestOpener_OpensFreshAdapterPerCall(t *testing.T) {
	orig := devicefactory.AdapterFactory
	t.Cleanup(func() { devicefactory.AdapterFactory = orig })

	var calls int
	devicefactory.AdapterFactory = func(_ context.Context, cfg *config.Config, _ *logrus.Logger) (device.Adapter, error) {
		calls++
		a := &mocks.MockAdapter{}
		a.On("ID").Return(cfg.Adapter)
		return a, nil
	}

	cfg := config.DefaultConfig()
	cfg.Adapter = "hci7"
	open := devicefactory.Opener(cfg, nil)

	first, err := open(context.Background())
	require.NoError(t, err)
	second, err := open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.NotSame(t, first, second)
	assert.Equal(t, "hci7", first.ID())
}
