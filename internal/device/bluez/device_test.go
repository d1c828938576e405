package bluez

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/srg/blebat/internal/device"
)

func (s *AdapterSuite) connectedHeadset() (device.Device, dbus.ObjectPath) {
	s.bus.addAdapter("hci0", true)
	p := s.bus.addDevice("hci0", "AA:BB:CC:DD:EE:01", "Headset", true, "0000180f-0000-1000-8000-00805f9b34fb")

	devices, err := s.open("hci0").ConnectedDevices(s.ctx(), []string{"180f"})
	s.Require().NoError(err)
	s.Require().Len(devices, 1)
	return devices[0], p
}

func (s *AdapterSuite) TestServices_HandleOrderAndNormalizedUUIDs() {
	dev, p := s.connectedHeadset()
	s.bus.addService(p, "0020", "0000180f-0000-1000-8000-00805f9b34fb")
	s.bus.addService(p, "000a", "00001801-0000-1000-8000-00805f9b34fb")
	s.bus.addService(p, "0030", "0000180F-0000-1000-8000-00805F9B34FB")

	services, err := dev.Services(s.ctx())

	s.Require().NoError(err)
	s.Require().Len(services, 3)
	s.Equal("1801", services[0].UUID())
	s.Equal("180f", services[1].UUID())
	s.Equal("Battery Service", services[1].KnownName())
	s.Equal("180f", services[2].UUID())
}

func (s *AdapterSuite) TestServices_OnlyOwnObjects() {
	dev, p := s.connectedHeadset()
	other := s.bus.addDevice("hci0", "AA:BB:CC:DD:EE:09", "Other", true)
	s.bus.addService(p, "0010", "0000180f-0000-1000-8000-00805f9b34fb")
	s.bus.addService(other, "0010", "0000180d-0000-1000-8000-00805f9b34fb")

	services, err := dev.Services(s.ctx())

	s.Require().NoError(err)
	s.Require().Len(services, 1)
	s.Equal("180f", services[0].UUID())
}

func (s *AdapterSuite) TestCharacteristicsAndDescriptors() {
	dev, p := s.connectedHeadset()
	svc := s.bus.addService(p, "0010", "0000180f-0000-1000-8000-00805f9b34fb")
	level := s.bus.addCharacteristic(svc, "0011", "00002a19-0000-1000-8000-00805f9b34fb", []byte{0x4b})
	s.bus.addCharacteristic(svc, "0015", "00002a1a-0000-1000-8000-00805f9b34fb", []byte{0x01})
	s.bus.addDescriptor(level, "0014", "00002901-0000-1000-8000-00805f9b34fb", []byte("Left"))
	s.bus.addDescriptor(level, "0013", "00002902-0000-1000-8000-00805f9b34fb", []byte{0, 0})

	services, err := dev.Services(s.ctx())
	s.Require().NoError(err)
	chars, err := services[0].Characteristics(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(chars, 2)
	s.Equal("2a19", chars[0].UUID())
	s.Equal("Battery Level", chars[0].KnownName())

	value, err := chars[0].Read(s.ctx())
	s.Require().NoError(err)
	s.Equal([]byte{0x4b}, value)

	descs, err := chars[0].Descriptors(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(descs, 2)
	s.Equal("2902", descs[0].UUID())
	s.Equal("2901", descs[1].UUID())
	s.Equal("Characteristic User Descriptor", descs[1].KnownName())

	text, err := descs[1].Read(s.ctx())
	s.Require().NoError(err)
	s.Equal("Left", string(text))
}

func (s *AdapterSuite) TestRead_Failure() {
	dev, p := s.connectedHeadset()
	svc := s.bus.addService(p, "0010", "0000180f-0000-1000-8000-00805f9b34fb")
	level := s.bus.addCharacteristic(svc, "0011", "00002a19-0000-1000-8000-00805f9b34fb", nil)
	s.bus.readErrs[level] = dbus.Error{Name: "org.bluez.Error.NotPermitted", Body: []interface{}{"Read not permitted"}}

	services, err := dev.Services(s.ctx())
	s.Require().NoError(err)
	chars, err := services[0].Characteristics(s.ctx())
	s.Require().NoError(err)

	_, err = chars[0].Read(s.ctx())

	s.EqualError(err, "Read not permitted")
}

func (s *AdapterSuite) TestRead_EmptyValue() {
	dev, p := s.connectedHeadset()
	svc := s.bus.addService(p, "0010", "0000180f-0000-1000-8000-00805f9b34fb")
	s.bus.addCharacteristic(svc, "0011", "00002a19-0000-1000-8000-00805f9b34fb", []byte{})

	services, err := dev.Services(s.ctx())
	s.Require().NoError(err)
	chars, err := services[0].Characteristics(s.ctx())
	s.Require().NoError(err)

	value, err := chars[0].Read(s.ctx())

	s.NoError(err)
	s.Empty(value)
}

func (s *AdapterSuite) TestCharacteristics_CancelledContext() {
	dev, p := s.connectedHeadset()
	s.bus.addService(p, "0010", "0000180f-0000-1000-8000-00805f9b34fb")
	services, err := dev.Services(s.ctx())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = services[0].Characteristics(ctx)

	s.ErrorIs(err, context.Canceled)
}
