package bluez

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// Adapter is a BlueZ adapter object, e.g. /org/bluez/hci0.
type Adapter struct {
	bus    Bus
	path   dbus.ObjectPath
	logger *logrus.Logger
}

// Open connects to the bus and selects the adapter called name ("hci0"), or
// the first adapter when name is empty.
func Open(ctx context.Context, name string, logger *logrus.Logger) (*Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}

	bus, err := ConnectBus()
	if err != nil {
		return nil, err
	}

	objects, err := managedObjects(ctx, bus)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}

	adapterPath, ok := findAdapter(objects, name)
	if !ok {
		_ = bus.Close()
		return nil, &device.NotFoundError{Resource: "adapter", Name: name}
	}

	logger.WithField("path", adapterPath).Debug("Using BlueZ adapter")
	return &Adapter{bus: bus, path: adapterPath, logger: logger}, nil
}

func findAdapter(objects ManagedObjects, name string) (dbus.ObjectPath, bool) {
	var paths []string
	for p, ifaces := range objects {
		if _, ok := ifaces[adapterInterface]; !ok {
			continue
		}
		if name != "" && path.Base(string(p)) != name {
			continue
		}
		paths = append(paths, string(p))
	}
	if len(paths) == 0 {
		return "", false
	}
	sort.Strings(paths)
	return dbus.ObjectPath(paths[0]), true
}

// ID returns the adapter name, e.g. "hci0".
func (a *Adapter) ID() string {
	return path.Base(string(a.path))
}

// WaitAvailable blocks until the adapter reports Powered.
func (a *Adapter) WaitAvailable(ctx context.Context) error {
	return waitForTrue(ctx, a.bus, a.path, adapterInterface, "Powered")
}

// ConnectedDevices returns the devices under this adapter that BlueZ reports
// as connected and whose UUIDs match services, ordered by object path.
func (a *Adapter) ConnectedDevices(ctx context.Context, services []string) ([]device.Device, error) {
	if len(services) == 0 {
		return []device.Device{}, nil
	}

	objects, err := managedObjects(ctx, a.bus)
	if err != nil {
		return nil, err
	}

	var paths []string
	for p, ifaces := range objects {
		props, ok := ifaces[deviceInterface]
		if !ok || pathProp(props, "Adapter") != a.path {
			continue
		}
		if !boolProp(props, "Connected") {
			continue
		}
		if !device.MatchesAny(stringsProp(props, "UUIDs"), services) {
			continue
		}
		paths = append(paths, string(p))
	}
	sort.Strings(paths)

	devices := make([]device.Device, 0, len(paths))
	for _, p := range paths {
		op := dbus.ObjectPath(p)
		devices = append(devices, &Device{bus: a.bus, path: op, props: objects[op][deviceInterface]})
	}

	a.logger.WithFields(logrus.Fields{
		"adapter": a.ID(),
		"matched": len(devices),
	}).Debug("Listed connected BlueZ devices")
	return devices, nil
}

// Connect makes sure dev is connected and its GATT database resolved. A link
// that is already up counts as success.
func (a *Adapter) Connect(ctx context.Context, dev device.Device) error {
	d, ok := dev.(*Device)
	if !ok {
		return fmt.Errorf("bluez: cannot connect foreign device %T", dev)
	}

	call := a.bus.Call(ctx, d.path, deviceInterface+".Connect")
	if call.Err != nil && errorName(call.Err) != errAlreadyConnected {
		return call.Err
	}

	return waitForTrue(ctx, a.bus, d.path, deviceInterface, "ServicesResolved")
}

// Close releases the bus connection. Links to devices are left as they were.
func (a *Adapter) Close() error {
	return a.bus.Close()
}

var _ device.Adapter = (*Adapter)(nil)
