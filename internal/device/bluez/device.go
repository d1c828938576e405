package bluez

import (
	"context"
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/srg/blebat/internal/bledb"
	"github.com/srg/blebat/internal/device"
)

// Device is a BlueZ Device1 object.
type Device struct {
	bus   Bus
	path  dbus.ObjectPath
	props map[string]dbus.Variant
}

// ID returns the object path.
func (d *Device) ID() string {
	return string(d.path)
}

// Name returns the remote name; devices that never reported one fail with
// device.ErrNameUnavailable.
func (d *Device) Name() (string, error) {
	name, ok := stringProp(d.props, "Name")
	if !ok {
		return "", fmt.Errorf("%w: %s", device.ErrNameUnavailable, d.path)
	}
	return name, nil
}

func (d *Device) Address() string {
	addr, _ := stringProp(d.props, "Address")
	return addr
}

// Services returns the resolved GATT services of the device in handle order.
func (d *Device) Services(ctx context.Context) ([]device.Service, error) {
	objects, err := managedObjects(ctx, d.bus)
	if err != nil {
		return nil, err
	}

	paths := childPaths(objects, gattServiceInterface, "Device", d.path)
	services := make([]device.Service, 0, len(paths))
	for _, p := range paths {
		props := objects[p][gattServiceInterface]
		services = append(services, &Service{
			bus:     d.bus,
			path:    p,
			uuid:    device.NormalizeUUID(stringOrEmpty(props, "UUID")),
			objects: objects,
		})
	}
	return services, nil
}

// Service is a GattService1 object. Its characteristics come from the same
// object snapshot the service was found in.
type Service struct {
	bus     Bus
	path    dbus.ObjectPath
	uuid    string
	objects ManagedObjects
}

func (s *Service) UUID() string      { return s.uuid }
func (s *Service) KnownName() string { return bledb.LookupService(s.uuid) }

func (s *Service) Characteristics(ctx context.Context) ([]device.Characteristic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := childPaths(s.objects, gattCharInterface, "Service", s.path)
	chars := make([]device.Characteristic, 0, len(paths))
	for _, p := range paths {
		props := s.objects[p][gattCharInterface]
		chars = append(chars, &Characteristic{
			bus:     s.bus,
			path:    p,
			uuid:    device.NormalizeUUID(stringOrEmpty(props, "UUID")),
			objects: s.objects,
		})
	}
	return chars, nil
}

type Characteristic struct {
	bus     Bus
	path    dbus.ObjectPath
	uuid    string
	objects ManagedObjects
}

func (c *Characteristic) UUID() string      { return c.uuid }
func (c *Characteristic) KnownName() string { return bledb.LookupCharacteristic(c.uuid) }

// Read issues ReadValue on the characteristic.
func (c *Characteristic) Read(ctx context.Context) ([]byte, error) {
	return readValue(ctx, c.bus, c.path, gattCharInterface)
}

func (c *Characteristic) Descriptors(ctx context.Context) ([]device.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := childPaths(c.objects, gattDescriptorInterface, "Characteristic", c.path)
	descs := make([]device.Descriptor, 0, len(paths))
	for _, p := range paths {
		props := c.objects[p][gattDescriptorInterface]
		descs = append(descs, &Descriptor{
			bus:  c.bus,
			path: p,
			uuid: device.NormalizeUUID(stringOrEmpty(props, "UUID")),
		})
	}
	return descs, nil
}

type Descriptor struct {
	bus  Bus
	path dbus.ObjectPath
	uuid string
}

func (d *Descriptor) UUID() string      { return d.uuid }
func (d *Descriptor) KnownName() string { return bledb.LookupDescriptor(d.uuid) }

func (d *Descriptor) Read(ctx context.Context) ([]byte, error) {
	return readValue(ctx, d.bus, d.path, gattDescriptorInterface)
}

func readValue(ctx context.Context, bus Bus, p dbus.ObjectPath, iface string) ([]byte, error) {
	var value []byte
	call := bus.Call(ctx, p, iface+".ReadValue", map[string]dbus.Variant{})
	if err := call.Store(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// childPaths returns the objects implementing iface whose parent property
// points at parent, sorted by path. BlueZ names GATT objects by handle, so
// path order is handle order.
func childPaths(objects ManagedObjects, iface, parentProp string, parent dbus.ObjectPath) []dbus.ObjectPath {
	var paths []string
	for p, ifaces := range objects {
		props, ok := ifaces[iface]
		if !ok || pathProp(props, parentProp) != parent {
			continue
		}
		paths = append(paths, string(p))
	}
	sort.Strings(paths)

	result := make([]dbus.ObjectPath, len(paths))
	for i, p := range paths {
		result[i] = dbus.ObjectPath(p)
	}
	return result
}

func stringOrEmpty(props map[string]dbus.Variant, name string) string {
	s, _ := stringProp(props, name)
	return s
}

var (
	_ device.Device         = (*Device)(nil)
	_ device.Service        = (*Service)(nil)
	_ device.Characteristic = (*Characteristic)(nil)
	_ device.Descriptor     = (*Descriptor)(nil)
)
