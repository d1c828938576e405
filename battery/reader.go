package battery

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// Reading is one Battery Level characteristic found on a device.
type Reading struct {
	// BatteryLevel is the first byte of the characteristic value, nil when
	// the value is empty. Values above 100 are passed through.
	BatteryLevel *uint8 `json:"battery_level"`

	// UserDescriptor is the Characteristic User Description, nil when absent
	// or not valid UTF-8.
	UserDescriptor *string `json:"user_descriptor"`
}

// ReadBattery resolves id among the currently connected battery devices,
// connects, and reads every Battery Level characteristic of every Battery
// Service, in enumeration order.
//
// Any failing step aborts the call; partial readings are never returned with
// an error. A device without a Battery Service yields an empty slice.
func ReadBattery(ctx context.Context, adapter device.Adapter, id string, logger *logrus.Logger) ([]Reading, error) {
	if logger == nil {
		logger = logrus.New()
	}
	log := logger.WithField("id", id)

	dev, err := resolveDevice(ctx, adapter, id)
	if err != nil {
		return nil, err
	}
	log = log.WithField("address", dev.Address())

	log.Debug("Connecting to device...")
	if err := adapter.Connect(ctx, dev); err != nil {
		return nil, &Error{Kind: KindConnectionFailed, ID: id, Err: device.NormalizeError(err)}
	}

	services, err := dev.Services(ctx)
	if err != nil {
		return nil, &Error{Kind: KindServiceDiscoveryFailed, ID: id, Err: device.NormalizeError(err)}
	}

	readings := make([]Reading, 0, 1)
	for _, svc := range services {
		if !device.SameUUID(svc.UUID(), device.BatteryServiceUUID) {
			continue
		}
		log.WithField("service", svc.KnownName()).Debug("Found battery service")

		chars, err := svc.Characteristics(ctx)
		if err != nil {
			return nil, &Error{Kind: KindCharacteristicDiscoveryFailed, ID: id, UUID: svc.UUID(), Err: device.NormalizeError(err)}
		}

		for _, char := range chars {
			if !device.SameUUID(char.UUID(), device.BatteryLevelUUID) {
				continue
			}

			reading, err := readLevel(ctx, char, id)
			if err != nil {
				return nil, err
			}
			readings = append(readings, reading)

			log.WithFields(logrus.Fields{
				"level":       reading.Level(),
				"description": reading.Description(),
			}).Debug("Read battery level")
		}
	}

	return readings, nil
}

// readLevel reads one Battery Level characteristic and its user description.
func readLevel(ctx context.Context, char device.Characteristic, id string) (Reading, error) {
	var reading Reading

	value, err := char.Read(ctx)
	if err != nil {
		return reading, &Error{Kind: KindCharacteristicReadFailed, ID: id, UUID: char.UUID(), Err: device.NormalizeError(err)}
	}
	if len(value) > 0 {
		level := value[0]
		reading.BatteryLevel = &level
	}

	descriptors, err := char.Descriptors(ctx)
	if err != nil {
		return reading, &Error{Kind: KindDescriptorDiscoveryFailed, ID: id, UUID: char.UUID(), Err: device.NormalizeError(err)}
	}

	for _, desc := range descriptors {
		if !device.SameUUID(desc.UUID(), device.UserDescriptionUUID) {
			continue
		}

		raw, err := desc.Read(ctx)
		if err != nil {
			return reading, &Error{Kind: KindDescriptorReadFailed, ID: id, UUID: desc.UUID(), Err: device.NormalizeError(err)}
		}
		// Undecodable text leaves any earlier description in place.
		if utf8.Valid(raw) {
			text := string(raw)
			reading.UserDescriptor = &text
		}
	}

	return reading, nil
}

// Level renders BatteryLevel as "75%", or "-" when absent.
func (r Reading) Level() string {
	if r.BatteryLevel == nil {
		return "-"
	}
	return strconv.Itoa(int(*r.BatteryLevel)) + "%"
}

// Description renders UserDescriptor, or "" when absent.
func (r Reading) Description() string {
	if r.UserDescriptor == nil {
		return ""
	}
	return *r.UserDescriptor
}
