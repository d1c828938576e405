package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/srg/blebat/internal/bledb"
	"github.com/srg/blebat/internal/device"
	"github.com/srg/blebat/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// DescriptorConfig describes a mocked GATT descriptor. Text, when set, takes
// precedence over Value.
type DescriptorConfig struct {
	UUID      string  `json:"uuid"`
	Value     []int   `json:"value,omitempty"`
	Text      *string `json:"text,omitempty"`
	ReadError string  `json:"read_error,omitempty"`
}

// CharacteristicConfig describes a mocked GATT characteristic.
type CharacteristicConfig struct {
	UUID             string             `json:"uuid"`
	Value            []int              `json:"value,omitempty"`
	ReadError        string             `json:"read_error,omitempty"`
	DescriptorsError string             `json:"descriptors_error,omitempty"`
	Descriptors      []DescriptorConfig `json:"descriptors,omitempty"`
}

// ServiceConfig describes a mocked GATT service.
type ServiceConfig struct {
	UUID                 string                 `json:"uuid"`
	CharacteristicsError string                 `json:"characteristics_error,omitempty"`
	Characteristics      []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceConfig describes a mocked connected peripheral. A nil Name makes
// Name() fail. UUIDs are the UUIDs the device reports to enumeration; when
// empty, the service UUIDs are used.
type DeviceConfig struct {
	ID            string          `json:"id"`
	Name          *string         `json:"name,omitempty"`
	Address       string          `json:"address,omitempty"`
	UUIDs         []string        `json:"uuids,omitempty"`
	ConnectError  string          `json:"connect_error,omitempty"`
	ServicesError string          `json:"services_error,omitempty"`
	Services      []ServiceConfig `json:"services,omitempty"`
}

// AdapterConfig describes a mocked adapter and the devices connected to it.
type AdapterConfig struct {
	ID             string         `json:"id,omitempty"`
	OpenError      string         `json:"open_error,omitempty"`
	WaitError      string         `json:"wait_error,omitempty"`
	EnumerateError string         `json:"enumerate_error,omitempty"`
	CloseError     string         `json:"close_error,omitempty"`
	Devices        []DeviceConfig `json:"devices,omitempty"`
}

// FakeAdapterBuilder builds mocked device.Adapter values from a fluent or JSON
// description. Every adapter handed out by Opener is recorded so tests can
// assert that it was released.
type FakeAdapterBuilder struct {
	config AdapterConfig

	mu    sync.Mutex
	built []*mocks.MockAdapter
}

// NewFakeAdapterBuilder creates a builder for an adapter named "hci0" with no
// connected devices.
func NewFakeAdapterBuilder() *FakeAdapterBuilder {
	return &FakeAdapterBuilder{config: AdapterConfig{ID: "hci0"}}
}

// FromJSON replaces the adapter description with the formatted JSON.
func (b *FakeAdapterBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *FakeAdapterBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config AdapterConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("FakeAdapterBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	if config.ID == "" {
		config.ID = "hci0"
	}

	b.config = config
	return b
}

func (b *FakeAdapterBuilder) WithOpenError(msg string) *FakeAdapterBuilder {
	b.config.OpenError = msg
	return b
}

func (b *FakeAdapterBuilder) WithWaitError(msg string) *FakeAdapterBuilder {
	b.config.WaitError = msg
	return b
}

func (b *FakeAdapterBuilder) WithEnumerateError(msg string) *FakeAdapterBuilder {
	b.config.EnumerateError = msg
	return b
}

// WithDevice adds a connected device. An empty name adds an unnamed device.
func (b *FakeAdapterBuilder) WithDevice(id, name string) *FakeAdapterBuilder {
	dev := DeviceConfig{ID: id, Address: id}
	if name != "" {
		dev.Name = &name
	}
	b.config.Devices = append(b.config.Devices, dev)
	return b
}

// WithService adds a service to the last added device.
func (b *FakeAdapterBuilder) WithService(uuid string) *FakeAdapterBuilder {
	dev := b.lastDevice("WithService")
	dev.Services = append(dev.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service.
func (b *FakeAdapterBuilder) WithCharacteristic(uuid string, value ...byte) *FakeAdapterBuilder {
	svc := b.lastService("WithCharacteristic")
	svc.Characteristics = append(svc.Characteristics, CharacteristicConfig{UUID: uuid, Value: toInts(value)})
	return b
}

// WithDescriptor adds a descriptor to the last added characteristic.
func (b *FakeAdapterBuilder) WithDescriptor(uuid string, value ...byte) *FakeAdapterBuilder {
	svc := b.lastService("WithDescriptor")
	if len(svc.Characteristics) == 0 {
		panic("WithDescriptor: no characteristic added yet, call WithCharacteristic first")
	}
	char := &svc.Characteristics[len(svc.Characteristics)-1]
	char.Descriptors = append(char.Descriptors, DescriptorConfig{UUID: uuid, Value: toInts(value)})
	return b
}

func (b *FakeAdapterBuilder) lastDevice(caller string) *DeviceConfig {
	if len(b.config.Devices) == 0 {
		panic(caller + ": no device added yet, call WithDevice first")
	}
	return &b.config.Devices[len(b.config.Devices)-1]
}

func (b *FakeAdapterBuilder) lastService(caller string) *ServiceConfig {
	dev := b.lastDevice(caller)
	if len(dev.Services) == 0 {
		panic(caller + ": no service added yet, call WithService first")
	}
	return &dev.Services[len(dev.Services)-1]
}

// Opener returns a device.Opener that hands out a freshly built adapter on
// every call, or fails when an open error is configured.
func (b *FakeAdapterBuilder) Opener() device.Opener {
	return func(ctx context.Context) (device.Adapter, error) {
		if b.config.OpenError != "" {
			return nil, errors.New(b.config.OpenError)
		}
		return b.Build(), nil
	}
}

// Adapters returns every adapter built so far, in build order.
func (b *FakeAdapterBuilder) Adapters() []*mocks.MockAdapter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*mocks.MockAdapter(nil), b.built...)
}

// Build creates a mocked adapter for the configured devices.
func (b *FakeAdapterBuilder) Build() *mocks.MockAdapter {
	adapter := &mocks.MockAdapter{}

	devices := make([]device.Device, 0, len(b.config.Devices))
	reported := make(map[string][]string, len(b.config.Devices))
	for _, cfg := range b.config.Devices {
		dev := buildDevice(cfg)
		devices = append(devices, dev)
		reported[cfg.ID] = reportedUUIDs(cfg)

		adapter.On("Connect", mock.Anything, mock.MatchedBy(func(d *mocks.MockDevice) bool {
			return d == dev
		})).Return(errorOrNil(cfg.ConnectError)).Maybe()
	}

	adapter.On("ID").Return(b.config.ID).Maybe()
	adapter.On("WaitAvailable", mock.Anything).Return(errorOrNil(b.config.WaitError)).Maybe()
	adapter.On("Close").Return(errorOrNil(b.config.CloseError)).Maybe()
	adapter.On("ConnectedDevices", mock.Anything, mock.Anything).Return(
		func(_ context.Context, services []string) []device.Device {
			var matched []device.Device
			for _, dev := range devices {
				if device.MatchesAny(reported[dev.ID()], services) {
					matched = append(matched, dev)
				}
			}
			return matched
		},
		errorOrNil(b.config.EnumerateError),
	).Maybe()

	b.mu.Lock()
	b.built = append(b.built, adapter)
	b.mu.Unlock()

	return adapter
}

func buildDevice(cfg DeviceConfig) *mocks.MockDevice {
	dev := &mocks.MockDevice{}
	dev.On("ID").Return(cfg.ID).Maybe()
	dev.On("Address").Return(cfg.Address).Maybe()
	if cfg.Name != nil {
		dev.On("Name").Return(*cfg.Name, nil).Maybe()
	} else {
		dev.On("Name").Return("", device.ErrNameUnavailable).Maybe()
	}

	services := make([]device.Service, 0, len(cfg.Services))
	for _, svcCfg := range cfg.Services {
		services = append(services, buildService(svcCfg))
	}
	if cfg.ServicesError != "" {
		dev.On("Services", mock.Anything).Return(nil, errors.New(cfg.ServicesError)).Maybe()
	} else {
		dev.On("Services", mock.Anything).Return(services, nil).Maybe()
	}
	return dev
}

func buildService(cfg ServiceConfig) *mocks.MockService {
	svc := &mocks.MockService{}
	svc.On("UUID").Return(cfg.UUID).Maybe()
	svc.On("KnownName").Return(bledb.LookupService(cfg.UUID)).Maybe()

	chars := make([]device.Characteristic, 0, len(cfg.Characteristics))
	for _, charCfg := range cfg.Characteristics {
		chars = append(chars, buildCharacteristic(charCfg))
	}
	if cfg.CharacteristicsError != "" {
		svc.On("Characteristics", mock.Anything).Return(nil, errors.New(cfg.CharacteristicsError)).Maybe()
	} else {
		svc.On("Characteristics", mock.Anything).Return(chars, nil).Maybe()
	}
	return svc
}

func buildCharacteristic(cfg CharacteristicConfig) *mocks.MockCharacteristic {
	char := &mocks.MockCharacteristic{}
	char.On("UUID").Return(cfg.UUID).Maybe()
	char.On("KnownName").Return(bledb.LookupCharacteristic(cfg.UUID)).Maybe()

	if cfg.ReadError != "" {
		char.On("Read", mock.Anything).Return(nil, errors.New(cfg.ReadError)).Maybe()
	} else {
		char.On("Read", mock.Anything).Return(toBytes(cfg.Value), nil).Maybe()
	}

	descs := make([]device.Descriptor, 0, len(cfg.Descriptors))
	for _, descCfg := range cfg.Descriptors {
		descs = append(descs, buildDescriptor(descCfg))
	}
	if cfg.DescriptorsError != "" {
		char.On("Descriptors", mock.Anything).Return(nil, errors.New(cfg.DescriptorsError)).Maybe()
	} else {
		char.On("Descriptors", mock.Anything).Return(descs, nil).Maybe()
	}
	return char
}

func buildDescriptor(cfg DescriptorConfig) *mocks.MockDescriptor {
	desc := &mocks.MockDescriptor{}
	desc.On("UUID").Return(cfg.UUID).Maybe()
	desc.On("KnownName").Return(bledb.LookupDescriptor(cfg.UUID)).Maybe()

	switch {
	case cfg.ReadError != "":
		desc.On("Read", mock.Anything).Return(nil, errors.New(cfg.ReadError)).Maybe()
	case cfg.Text != nil:
		desc.On("Read", mock.Anything).Return([]byte(*cfg.Text), nil).Maybe()
	default:
		desc.On("Read", mock.Anything).Return(toBytes(cfg.Value), nil).Maybe()
	}
	return desc
}

// reportedUUIDs returns what a device reports to enumeration: explicit UUIDs,
// or its service UUIDs.
func reportedUUIDs(cfg DeviceConfig) []string {
	if len(cfg.UUIDs) > 0 {
		return cfg.UUIDs
	}
	uuids := make([]string, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		uuids = append(uuids, svc.UUID)
	}
	return uuids
}

func errorOrNil(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

func toInts(value []byte) []int {
	if value == nil {
		return nil
	}
	ints := make([]int, len(value))
	for i, v := range value {
		ints[i] = int(v)
	}
	return ints
}

func toBytes(value []int) []byte {
	b := make([]byte, len(value))
	for i, v := range value {
		b[i] = byte(v)
	}
	return b
}
