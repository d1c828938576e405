package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/blebat/internal/bledb"
	"github.com/srg/blebat/internal/device"
)

// Device is a peripheral seen during the scan window.
type Device struct {
	id    string
	addr  ble.Addr
	name  string
	uuids []string

	mu     sync.Mutex
	client ble.Client
}

func newDevice(adv ble.Advertisement) *Device {
	return &Device{
		id:    addressID(adv.Addr()),
		addr:  adv.Addr(),
		name:  adv.LocalName(),
		uuids: device.NormalizeUUIDs(advertisedUUIDs(adv)),
	}
}

func (d *Device) ID() string { return d.id }

// Name returns the advertised local name; peripherals that advertise none
// fail with device.ErrNameUnavailable.
func (d *Device) Name() (string, error) {
	if d.name == "" {
		return "", fmt.Errorf("%w: %s", device.ErrNameUnavailable, d.id)
	}
	return d.name, nil
}

func (d *Device) Address() string { return d.addr.String() }

func (d *Device) attach(client ble.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = client
}

func (d *Device) connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client != nil
}

func (d *Device) gattClient() (ble.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil, device.ErrNotConnected
	}
	return d.client, nil
}

// Services runs primary service discovery.
func (d *Device) Services(ctx context.Context) ([]device.Service, error) {
	client, err := d.gattClient()
	if err != nil {
		return nil, err
	}

	svcs, err := callWithContext(ctx, "ble-discover-services", func() ([]*ble.Service, error) {
		return client.DiscoverServices(nil)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}

	result := make([]device.Service, 0, len(svcs))
	for _, s := range svcs {
		result = append(result, &Service{client: client, svc: s, uuid: device.NormalizeUUID(s.UUID.String())})
	}
	return result, nil
}

type Service struct {
	client ble.Client
	svc    *ble.Service
	uuid   string
}

func (s *Service) UUID() string      { return s.uuid }
func (s *Service) KnownName() string { return bledb.LookupService(s.uuid) }

func (s *Service) Characteristics(ctx context.Context) ([]device.Characteristic, error) {
	chars, err := callWithContext(ctx, "ble-discover-characteristics", func() ([]*ble.Characteristic, error) {
		return s.client.DiscoverCharacteristics(nil, s.svc)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}

	result := make([]device.Characteristic, 0, len(chars))
	for _, c := range chars {
		result = append(result, &Characteristic{client: s.client, char: c, uuid: device.NormalizeUUID(c.UUID.String())})
	}
	return result, nil
}

type Characteristic struct {
	client ble.Client
	char   *ble.Characteristic
	uuid   string
}

func (c *Characteristic) UUID() string      { return c.uuid }
func (c *Characteristic) KnownName() string { return bledb.LookupCharacteristic(c.uuid) }

func (c *Characteristic) Read(ctx context.Context) ([]byte, error) {
	value, err := callWithContext(ctx, "ble-read-characteristic", func() ([]byte, error) {
		return c.client.ReadCharacteristic(c.char)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	return value, nil
}

func (c *Characteristic) Descriptors(ctx context.Context) ([]device.Descriptor, error) {
	descs, err := callWithContext(ctx, "ble-discover-descriptors", func() ([]*ble.Descriptor, error) {
		return c.client.DiscoverDescriptors(nil, c.char)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}

	result := make([]device.Descriptor, 0, len(descs))
	for _, d := range descs {
		result = append(result, &Descriptor{client: c.client, desc: d, uuid: device.NormalizeUUID(d.UUID.String())})
	}
	return result, nil
}

type Descriptor struct {
	client ble.Client
	desc   *ble.Descriptor
	uuid   string
}

func (d *Descriptor) UUID() string      { return d.uuid }
func (d *Descriptor) KnownName() string { return bledb.LookupDescriptor(d.uuid) }

// Read returns the value cached at discovery when there is one. Descriptors
// without a handle cannot be read (go-ble on macOS does not populate them).
func (d *Descriptor) Read(ctx context.Context) ([]byte, error) {
	if len(d.desc.Value) > 0 {
		return d.desc.Value, nil
	}
	if d.desc.Handle == 0 {
		return nil, fmt.Errorf("%w: descriptor %s has no handle", device.ErrUnsupported, d.uuid)
	}

	value, err := callWithContext(ctx, "ble-read-descriptor", func() ([]byte, error) {
		return d.client.ReadDescriptor(d.desc)
	})
	if err != nil {
		return nil, NormalizeError(err)
	}
	return value, nil
}

var (
	_ device.Device         = (*Device)(nil)
	_ device.Service        = (*Service)(nil)
	_ device.Characteristic = (*Characteristic)(nil)
	_ device.Descriptor     = (*Descriptor)(nil)
)
