package goble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// mockBLEDevice mocks the ble.Device methods the adapter uses; any other
// method panics through the nil embedded interface.
type mockBLEDevice struct {
	ble.Device
	mock.Mock
}

func (m *mockBLEDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	return m.Called(ctx, allowDup, h).Error(0)
}

func (m *mockBLEDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	args := m.Called(ctx, a)
	client, _ := args.Get(0).(ble.Client)
	return client, args.Error(1)
}

func (m *mockBLEDevice) Stop() error {
	return m.Called().Error(0)
}

type mockClient struct {
	ble.Client
	mock.Mock
}

func (m *mockClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	svcs, _ := args.Get(0).([]*ble.Service)
	return svcs, args.Error(1)
}

func (m *mockClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	chars, _ := args.Get(0).([]*ble.Characteristic)
	return chars, args.Error(1)
}

func (m *mockClient) DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error) {
	args := m.Called(filter, c)
	descs, _ := args.Get(0).([]*ble.Descriptor)
	return descs, args.Error(1)
}

func (m *mockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *mockClient) ReadDescriptor(d *ble.Descriptor) ([]byte, error) {
	args := m.Called(d)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *mockClient) CancelConnection() error {
	return m.Called().Error(0)
}

// fakeAdv is an advertisement with just the fields the adapter reads.
type fakeAdv struct {
	ble.Advertisement

	addr        string
	name        string
	connectable bool
	services    []ble.UUID
	overflow    []ble.UUID
}

func (a fakeAdv) Addr() ble.Addr              { return ble.NewAddr(a.addr) }
func (a fakeAdv) LocalName() string           { return a.name }
func (a fakeAdv) Connectable() bool           { return a.connectable }
func (a fakeAdv) Services() []ble.UUID        { return a.services }
func (a fakeAdv) OverflowService() []ble.UUID { return a.overflow }

var batteryUUID = ble.UUID16(0x180f)

// scanDelivering makes Scan deliver advs and then end like an expired window.
func scanDelivering(dev *mockBLEDevice, advs ...ble.Advertisement) {
	dev.On("Scan", mock.Anything, true, mock.Anything).Run(func(args mock.Arguments) {
		h := args.Get(2).(ble.AdvHandler)
		for _, adv := range advs {
			h(adv)
		}
	}).Return(context.DeadlineExceeded)
}
