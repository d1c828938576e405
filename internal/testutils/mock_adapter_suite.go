package testutils

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
	"github.com/stretchr/testify/suite"
)

// MockAdapterSuite provides a reusable testify suite around a mocked adapter.
//
// Basic usage (one connected headset at 50%):
//
//	type GatewaySuite struct {
//	    testutils.MockAdapterSuite
//	}
//
// Custom adapter:
//
//	func (s *GatewaySuite) SetupTest() {
//	    s.WithAdapter().
//	        WithDevice("dev-1", "Keyboard").
//	        WithService("180F").
//	        WithCharacteristic("2A19", 80)
//
//	    s.MockAdapterSuite.SetupTest() // call parent last to apply configuration
//	}
type MockAdapterSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	AdapterBuilder *FakeAdapterBuilder
}

// SetupSuite runs once before all tests in the suite.
func (s *MockAdapterSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest installs the default adapter unless a test configured its own.
func (s *MockAdapterSuite) SetupTest() {
	if s.AdapterBuilder == nil {
		s.AdapterBuilder = DefaultAdapterBuilder()
	}
}

// TearDownTest checks every handed-out adapter was released.
func (s *MockAdapterSuite) TearDownTest() {
	if s.AdapterBuilder != nil && s.AdapterBuilder.config.OpenError == "" {
		for _, adapter := range s.AdapterBuilder.Adapters() {
			adapter.AssertCalled(s.T(), "Close")
		}
	}
	s.AdapterBuilder = nil
}

// WithAdapter returns the adapter builder for configuration in SetupTest or
// at the start of a test.
func (s *MockAdapterSuite) WithAdapter() *FakeAdapterBuilder {
	if s.AdapterBuilder == nil {
		s.AdapterBuilder = NewFakeAdapterBuilder()
	}
	return s.AdapterBuilder
}

// Opener returns the opener backed by the configured adapter builder.
func (s *MockAdapterSuite) Opener() device.Opener {
	return s.AdapterBuilder.Opener()
}

// DefaultAdapterBuilder describes one connected device, "Headset", with a
// Battery Service whose Battery Level reads 50% and is described as "Main".
func DefaultAdapterBuilder() *FakeAdapterBuilder {
	return NewFakeAdapterBuilder().FromJSON(`
	{
		"id": "hci0",
		"devices": [
			{
				"id": "dev-headset",
				"name": "Headset",
				"services": [
					{
						"uuid": "180F",
						"characteristics": [
							{
								"uuid": "2A19",
								"value": [50],
								"descriptors": [ { "uuid": "2901", "text": "Main" } ]
							}
						]
					}
				]
			}
		]
	}`)
}
