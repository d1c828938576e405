package battery

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// DeviceIdentity names a connected device. ID is the only way to refer to the
// device in a later call; it is re-resolved every time.
type DeviceIdentity struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ScanFilter returns the service UUIDs used to find battery devices: the
// Battery Service and the Battery Level characteristic. Some platforms list
// characteristic UUIDs among a device's advertised UUIDs, hence both.
func ScanFilter() []string {
	return []string{device.BatteryServiceUUID, device.BatteryLevelUUID}
}

// ListDevicesWithServices lists devices currently connected to the host that
// report at least one of services.
//
// A device whose name cannot be read is skipped; only a failure of the
// enumeration itself fails the call. No matches yields an empty slice.
func ListDevicesWithServices(ctx context.Context, adapter device.Adapter, services []string, logger *logrus.Logger) ([]DeviceIdentity, error) {
	if logger == nil {
		logger = logrus.New()
	}

	devices, err := adapter.ConnectedDevices(ctx, services)
	if err != nil {
		return nil, &Error{Kind: KindEnumerationFailed, Err: device.NormalizeError(err)}
	}

	result := make([]DeviceIdentity, 0, len(devices))
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		name, err := dev.Name()
		if err != nil {
			logger.WithFields(logrus.Fields{
				"id":    dev.ID(),
				"error": err,
			}).Debug("Skipping device without a readable name")
			continue
		}

		id := dev.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		result = append(result, DeviceIdentity{Name: name, ID: id})
	}

	logger.WithFields(logrus.Fields{
		"adapter":      adapter.ID(),
		"device_count": len(result),
	}).Debug("Enumerated connected devices")

	return result, nil
}

// resolveDevice re-runs the battery enumeration and returns the device whose
// ID equals id. Names are not required here.
func resolveDevice(ctx context.Context, adapter device.Adapter, id string) (device.Device, error) {
	devices, err := adapter.ConnectedDevices(ctx, ScanFilter())
	if err != nil {
		return nil, &Error{Kind: KindEnumerationFailed, ID: id, Err: device.NormalizeError(err)}
	}

	for _, dev := range devices {
		if dev.ID() == id {
			return dev, nil
		}
	}
	return nil, &Error{Kind: KindDeviceNotFound, ID: id}
}
