package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a local BLE resource is not found
type NotFoundError struct {
	Resource string // "adapter", "device", "service"
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

// Is lets errors.Is match any adapter NotFoundError against ErrAdapterNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrAdapterNotFound && e.Resource == "adapter"
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

// Platform errors
var (
	ErrAdapterNotFound = errors.New("bluetooth adapter not found")
	ErrBluetoothOff    = errors.New("bluetooth is turned off")
	ErrNameUnavailable = errors.New("device name unavailable")
	ErrUnsupported     = errors.New("unsupported")
)

// NormalizeError maps known platform error strings (go-ble, CoreBluetooth, BlueZ)
// to the sentinel errors above. The original error is kept in the chain.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"),
		containsIgnoreCase(msg, "org.bluez.Error.NotReady"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "already connected"),
		containsIgnoreCase(msg, "org.bluez.Error.AlreadyConnected"):
		return fmt.Errorf("%w: %v", ErrAlreadyConnected, err)
	case containsIgnoreCase(msg, "not connected"),
		containsIgnoreCase(msg, "org.bluez.Error.NotConnected"),
		containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "connection is not initialized"):
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	case containsIgnoreCase(msg, "org.bluez.Error.NotSupported"),
		containsIgnoreCase(msg, "not supported"):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	default:
		return err
	}
}

// containsIgnoreCase checks substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Adapter is the local BLE radio. A value is acquired per operation and
// released with Close; it is never shared between operations.
type Adapter interface {
	// ID names the adapter (e.g. "hci0").
	ID() string

	// WaitAvailable blocks until the radio is powered and usable.
	WaitAvailable(ctx context.Context) error

	// ConnectedDevices returns devices currently connected to the host that
	// report at least one of services. An empty filter matches nothing.
	ConnectedDevices(ctx context.Context, services []string) ([]Device, error)

	// Connect establishes (or confirms) a connection to dev.
	Connect(ctx context.Context, dev Device) error

	Close() error
}

// Opener acquires the platform's default adapter. Implementations must not
// cache the returned Adapter between calls.
type Opener func(ctx context.Context) (Adapter, error)

// Device is a remote peripheral as enumerated by an Adapter.
type Device interface {
	// ID is the stable textual encoding of the platform handle. The same
	// physical device yields the same ID across enumerations.
	ID() string

	// Name returns the display name or ErrNameUnavailable.
	Name() (string, error)

	Address() string

	Services(ctx context.Context) ([]Service, error)
}

// Service represents a GATT service
type Service interface {
	UUID() string
	KnownName() string
	Characteristics(ctx context.Context) ([]Characteristic, error)
}

// Characteristic represents a GATT characteristic
type Characteristic interface {
	UUID() string
	KnownName() string
	Read(ctx context.Context) ([]byte, error)
	Descriptors(ctx context.Context) ([]Descriptor, error)
}

// Descriptor represents a GATT characteristic descriptor
type Descriptor interface {
	UUID() string
	KnownName() string
	Read(ctx context.Context) ([]byte, error)
}
