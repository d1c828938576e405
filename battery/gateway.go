// Package battery discovers connected BLE peripherals exposing the Battery
// Service and reads their battery level.
//
// The pipeline is stateless: every call acquires the adapter, re-enumerates
// connected devices and releases the adapter before returning. Device IDs are
// the only thing that survives between calls.
package battery

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// Gateway exposes the two operations UI callers invoke. Results are JSON
// serializable; on failure err.Error() is the message to display.
type Gateway struct {
	open   device.Opener
	logger *logrus.Logger
}

// NewGateway creates a Gateway that acquires adapters through open.
func NewGateway(open device.Opener, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{open: open, logger: logger}
}

// ListBatteryDevices lists connected devices that expose battery information.
func (g *Gateway) ListBatteryDevices(ctx context.Context) ([]DeviceIdentity, error) {
	adapter, err := AcquireReadyAdapter(ctx, g.open, g.logger)
	if err != nil {
		g.logFailure("list_battery_devices", err, nil)
		return nil, err
	}
	defer releaseAdapter(adapter, g.logger)

	devices, err := ListDevicesWithServices(ctx, adapter, ScanFilter(), g.logger)
	if err != nil {
		g.logFailure("list_battery_devices", err, nil)
		return nil, err
	}
	return devices, nil
}

// GetBatteryInfo reads the battery levels of the device with the given id.
func (g *Gateway) GetBatteryInfo(ctx context.Context, id string) ([]Reading, error) {
	adapter, err := AcquireReadyAdapter(ctx, g.open, g.logger)
	if err != nil {
		g.logFailure("get_battery_info", err, logrus.Fields{"id": id})
		return nil, err
	}
	defer releaseAdapter(adapter, g.logger)

	readings, err := ReadBattery(ctx, adapter, id, g.logger)
	if err != nil {
		g.logFailure("get_battery_info", err, logrus.Fields{"id": id})
		return nil, err
	}
	return readings, nil
}

// logFailure records a failed operation with the failing step's kind.
func (g *Gateway) logFailure(op string, err error, fields logrus.Fields) {
	entry := g.logger.WithFields(fields).WithError(err)
	if kind := KindOf(err); kind != 0 {
		entry = entry.WithField("kind", kind.String())
	}
	entry.Error(op + " failed")
}
