// Package mocks holds testify mocks for the internal/device interfaces.
//
// Return values may be given either as plain values or as functions taking
// the call arguments, so expectations can compute results per call.
package mocks

import (
	"context"

	"github.com/srg/blebat/internal/device"
	"github.com/stretchr/testify/mock"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) ID() string {
	return m.Called().String(0)
}

func (m *MockAdapter) WaitAvailable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAdapter) ConnectedDevices(ctx context.Context, services []string) ([]device.Device, error) {
	args := m.Called(ctx, services)

	var devs []device.Device
	switch v := args.Get(0).(type) {
	case func(context.Context, []string) []device.Device:
		devs = v(ctx, services)
	case []device.Device:
		devs = v
	}
	return devs, args.Error(1)
}

func (m *MockAdapter) Connect(ctx context.Context, dev device.Device) error {
	return m.Called(ctx, dev).Error(0)
}

func (m *MockAdapter) Close() error {
	return m.Called().Error(0)
}

type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) ID() string {
	return m.Called().String(0)
}

func (m *MockDevice) Name() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockDevice) Address() string {
	return m.Called().String(0)
}

func (m *MockDevice) Services(ctx context.Context) ([]device.Service, error) {
	args := m.Called(ctx)
	svcs, _ := args.Get(0).([]device.Service)
	return svcs, args.Error(1)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) UUID() string {
	return m.Called().String(0)
}

func (m *MockService) KnownName() string {
	return m.Called().String(0)
}

func (m *MockService) Characteristics(ctx context.Context) ([]device.Characteristic, error) {
	args := m.Called(ctx)
	chars, _ := args.Get(0).([]device.Characteristic)
	return chars, args.Error(1)
}

type MockCharacteristic struct {
	mock.Mock
}

func (m *MockCharacteristic) UUID() string {
	return m.Called().String(0)
}

func (m *MockCharacteristic) KnownName() string {
	return m.Called().String(0)
}

func (m *MockCharacteristic) Read(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *MockCharacteristic) Descriptors(ctx context.Context) ([]device.Descriptor, error) {
	args := m.Called(ctx)
	descs, _ := args.Get(0).([]device.Descriptor)
	return descs, args.Error(1)
}

type MockDescriptor struct {
	mock.Mock
}

func (m *MockDescriptor) UUID() string {
	return m.Called().String(0)
}

func (m *MockDescriptor) KnownName() string {
	return m.Called().String(0)
}

func (m *MockDescriptor) Read(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

var (
	_ device.Adapter        = (*MockAdapter)(nil)
	_ device.Device         = (*MockDevice)(nil)
	_ device.Service        = (*MockService)(nil)
	_ device.Characteristic = (*MockCharacteristic)(nil)
	_ device.Descriptor     = (*MockDescriptor)(nil)
)
