package battery

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the pipeline step that failed.
type Kind int

const (
	KindAdapterNotFound Kind = iota + 1
	KindAdapterUnavailable
	KindEnumerationFailed
	KindDeviceNotFound
	KindConnectionFailed
	KindServiceDiscoveryFailed
	KindCharacteristicDiscoveryFailed
	KindDescriptorDiscoveryFailed
	KindCharacteristicReadFailed
	KindDescriptorReadFailed
)

var kindMessages = map[Kind]string{
	KindAdapterNotFound:               "bluetooth adapter not found",
	KindAdapterUnavailable:            "bluetooth adapter unavailable",
	KindEnumerationFailed:             "failed to enumerate connected devices",
	KindDeviceNotFound:                "device not found",
	KindConnectionFailed:              "failed to connect to device",
	KindServiceDiscoveryFailed:        "failed to discover services",
	KindCharacteristicDiscoveryFailed: "failed to discover characteristics",
	KindDescriptorDiscoveryFailed:     "failed to discover descriptors",
	KindCharacteristicReadFailed:      "failed to read characteristic",
	KindDescriptorReadFailed:          "failed to read descriptor",
}

func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Error is the single error type returned by this package. It records the
// failing step, the device and GATT entity involved, and the platform error.
type Error struct {
	Kind Kind
	ID   string // device id, when known
	UUID string // service, characteristic or descriptor UUID, when relevant
	Err  error
}

// Error renders the message surfaced to UI callers.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Kind == KindDeviceNotFound && e.ID != "" {
		msg := fmt.Sprintf("device %q not found", e.ID)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}

	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.UUID != "" {
		b.WriteString(" ")
		b.WriteString(e.UUID)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " on %s", e.ID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks, one per Kind.
var (
	ErrAdapterNotFound               = &Error{Kind: KindAdapterNotFound}
	ErrAdapterUnavailable            = &Error{Kind: KindAdapterUnavailable}
	ErrEnumerationFailed             = &Error{Kind: KindEnumerationFailed}
	ErrDeviceNotFound                = &Error{Kind: KindDeviceNotFound}
	ErrConnectionFailed              = &Error{Kind: KindConnectionFailed}
	ErrServiceDiscoveryFailed        = &Error{Kind: KindServiceDiscoveryFailed}
	ErrCharacteristicDiscoveryFailed = &Error{Kind: KindCharacteristicDiscoveryFailed}
	ErrDescriptorDiscoveryFailed     = &Error{Kind: KindDescriptorDiscoveryFailed}
	ErrCharacteristicReadFailed      = &Error{Kind: KindCharacteristicReadFailed}
	ErrDescriptorReadFailed          = &Error{Kind: KindDescriptorReadFailed}
)

// KindOf returns the Kind carried by err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Kind
	}
	return 0
}
