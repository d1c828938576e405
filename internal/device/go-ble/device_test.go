package goble

import (
	"context"
	"errors"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blebat/internal/device"
	"github.com/stretchr/testify/mock"
)

// connectedMouse returns a device already attached to client.
func (s *AdapterSuite) connectedMouse(client *mockClient) device.Device {
	scanDelivering(s.dev, fakeAdv{addr: "AA:BB:CC:DD:EE:01", name: "Mouse", connectable: true, services: []ble.UUID{batteryUUID}})
	s.dev.On("Dial", mock.Anything, mock.Anything).Return(client, nil)

	adapter := s.open()
	devices, err := adapter.ConnectedDevices(context.Background(), []string{"180f"})
	s.Require().NoError(err)
	s.Require().NoError(adapter.Connect(context.Background(), devices[0]))
	return devices[0]
}

func (s *AdapterSuite) TestServices_RequiresConnection() {
	d := &Device{id: "aa", addr: ble.NewAddr("aa")}

	_, err := d.Services(context.Background())

	s.ErrorIs(err, device.ErrNotConnected)
}

func (s *AdapterSuite) TestGATTTraversal() {
	level := &ble.Characteristic{UUID: ble.UUID16(0x2a19)}
	userDesc := &ble.Descriptor{UUID: ble.UUID16(0x2901), Handle: 0x14}
	cccd := &ble.Descriptor{UUID: ble.UUID16(0x2902), Handle: 0x13, Value: []byte{0, 0}}
	svc := &ble.Service{UUID: batteryUUID}

	client := &mockClient{}
	client.On("DiscoverServices", []ble.UUID(nil)).Return([]*ble.Service{{UUID: ble.UUID16(0x1801)}, svc}, nil)
	client.On("DiscoverCharacteristics", []ble.UUID(nil), svc).Return([]*ble.Characteristic{level}, nil)
	client.On("ReadCharacteristic", level).Return([]byte{0x4b}, nil)
	client.On("DiscoverDescriptors", []ble.UUID(nil), level).Return([]*ble.Descriptor{cccd, userDesc}, nil)
	client.On("ReadDescriptor", userDesc).Return([]byte("Left"), nil)

	dev := s.connectedMouse(client)
	ctx := context.Background()

	services, err := dev.Services(ctx)
	s.Require().NoError(err)
	s.Require().Len(services, 2)
	s.Equal("1801", services[0].UUID())
	s.Equal("180f", services[1].UUID())
	s.Equal("Battery Service", services[1].KnownName())

	chars, err := services[1].Characteristics(ctx)
	s.Require().NoError(err)
	s.Require().Len(chars, 1)
	s.Equal("2a19", chars[0].UUID())

	value, err := chars[0].Read(ctx)
	s.Require().NoError(err)
	s.Equal([]byte{0x4b}, value)

	descs, err := chars[0].Descriptors(ctx)
	s.Require().NoError(err)
	s.Require().Len(descs, 2)
	s.Equal("2902", descs[0].UUID())
	s.Equal("2901", descs[1].UUID())

	cached, err := descs[0].Read(ctx)
	s.Require().NoError(err)
	s.Equal([]byte{0, 0}, cached)

	text, err := descs[1].Read(ctx)
	s.Require().NoError(err)
	s.Equal("Left", string(text))
	client.AssertNotCalled(s.T(), "ReadDescriptor", cccd)
}

func (s *AdapterSuite) TestDescriptorWithoutHandle() {
	d := &Descriptor{desc: &ble.Descriptor{UUID: ble.UUID16(0x2901)}, uuid: "2901"}

	_, err := d.Read(context.Background())

	s.ErrorIs(err, device.ErrUnsupported)
}

func (s *AdapterSuite) TestReadFailureIsNormalized() {
	level := &ble.Characteristic{UUID: ble.UUID16(0x2a19)}
	client := &mockClient{}
	client.On("ReadCharacteristic", level).Return(nil, errors.New("disconnected"))

	c := &Characteristic{client: client, char: level, uuid: "2a19"}
	_, err := c.Read(context.Background())

	s.ErrorIs(err, device.ErrNotConnected)
}

func (s *AdapterSuite) TestBlockingCallAbandonedOnDeadline() {
	svc := &ble.Service{UUID: batteryUUID}
	release := make(chan struct{})
	defer close(release)

	client := &mockClient{}
	client.On("DiscoverCharacteristics", []ble.UUID(nil), svc).
		Run(func(mock.Arguments) { <-release }).
		Return([]*ble.Characteristic{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := (&Service{client: client, svc: svc, uuid: "180f"}).Characteristics(ctx)

	s.ErrorIs(err, context.DeadlineExceeded)
}
