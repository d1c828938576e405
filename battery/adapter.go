package battery

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// AcquireReadyAdapter opens the default adapter through open and waits until
// it is powered. The adapter is never powered on here; a radio that stays off
// keeps WaitAvailable blocked until ctx ends.
//
// On success the caller owns the adapter and must Close it.
func AcquireReadyAdapter(ctx context.Context, open device.Opener, logger *logrus.Logger) (device.Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}

	adapter, err := open(ctx)
	if err != nil {
		logger.WithError(err).Debug("No usable Bluetooth adapter")
		return nil, &Error{Kind: KindAdapterNotFound, Err: device.NormalizeError(err)}
	}
	if adapter == nil {
		return nil, &Error{Kind: KindAdapterNotFound}
	}

	logger.WithField("adapter", adapter.ID()).Debug("Waiting for adapter to become available...")
	if err := adapter.WaitAvailable(ctx); err != nil {
		releaseAdapter(adapter, logger)
		return nil, &Error{Kind: KindAdapterUnavailable, Err: device.NormalizeError(err)}
	}

	logger.WithField("adapter", adapter.ID()).Debug("Adapter available")
	return adapter, nil
}

// releaseAdapter closes adapter, logging rather than returning close errors.
func releaseAdapter(adapter device.Adapter, logger *logrus.Logger) {
	if err := adapter.Close(); err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": adapter.ID(),
			"error":   err,
		}).Warn("Failed to release adapter")
	}
}
