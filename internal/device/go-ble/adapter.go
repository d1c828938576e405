// Package goble implements device.Adapter directly on an HCI controller (Linux)
// or CoreBluetooth (macOS) through github.com/go-ble/ble.
//
// go-ble cannot see links held by the operating system, so ConnectedDevices
// listens for a bounded scan window and reports connectable advertisers.
// Device IDs are lower-case addresses.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
)

// DefaultScanWindow bounds ConnectedDevices when Options.ScanWindow is unset.
const DefaultScanWindow = 5 * time.Second

// Options select the controller and the scan window.
type Options struct {
	DeviceID   int
	ScanWindow time.Duration
}

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func(opts Options) (ble.Device, error) {
	return newPlatformDevice(opts)
}

// Adapter drives one go-ble device. Every GATT client it dials is cancelled
// on Close.
type Adapter struct {
	dev    ble.Device
	opts   Options
	logger *logrus.Logger

	mu      sync.Mutex
	clients []ble.Client
}

// Open creates the platform device. On macOS this fails when Bluetooth is
// off; on Linux when the controller cannot be opened.
func Open(opts Options, logger *logrus.Logger) (*Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = DefaultScanWindow
	}

	dev, err := DeviceFactory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	return &Adapter{dev: dev, opts: opts, logger: logger}, nil
}

func (a *Adapter) ID() string {
	return fmt.Sprintf("hci%d", a.opts.DeviceID)
}

// WaitAvailable returns once the device exists: go-ble refuses to create a
// device for a controller that is down, so there is nothing left to wait for.
func (a *Adapter) WaitAvailable(ctx context.Context) error {
	return ctx.Err()
}

// ConnectedDevices scans for the configured window and returns connectable
// advertisers whose advertised UUIDs match services, ordered by ID.
func (a *Adapter) ConnectedDevices(ctx context.Context, services []string) ([]device.Device, error) {
	if len(services) == 0 {
		return []device.Device{}, nil
	}

	found := hashmap.New[string, *Device]()
	handler := func(adv ble.Advertisement) {
		if !adv.Connectable() || !device.MatchesAny(advertisedUUIDs(adv), services) {
			return
		}
		dev := newDevice(adv)
		// A scan response may carry the name the first advertisement lacked.
		if existing, ok := found.Get(dev.id); !ok || (existing.name == "" && dev.name != "") {
			found.Set(dev.id, dev)
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, a.opts.ScanWindow)
	defer cancel()

	a.logger.WithFields(logrus.Fields{
		"adapter":  a.ID(),
		"window":   a.opts.ScanWindow,
		"services": services,
	}).Debug("Scanning for battery advertisers...")

	err := a.dev.Scan(scanCtx, true, handler)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, NormalizeError(err)
	}

	devices := make([]device.Device, 0, found.Len())
	found.Range(func(_ string, d *Device) bool {
		devices = append(devices, d)
		return true
	})
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID() < devices[j].ID()
	})
	return devices, nil
}

// Connect dials dev unless this adapter already holds a link to it.
func (a *Adapter) Connect(ctx context.Context, dev device.Device) error {
	d, ok := dev.(*Device)
	if !ok {
		return fmt.Errorf("goble: cannot connect foreign device %T", dev)
	}
	if d.connected() {
		return nil
	}

	a.logger.WithField("address", d.id).Debug("Dialing BLE device...")
	client, err := a.dev.Dial(ctx, d.addr)
	if err != nil {
		return NormalizeError(err)
	}

	a.mu.Lock()
	a.clients = append(a.clients, client)
	a.mu.Unlock()

	d.attach(client)
	return nil
}

// Close cancels every connection opened here and stops the device.
func (a *Adapter) Close() error {
	a.mu.Lock()
	clients := a.clients
	a.clients = nil
	a.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.CancelConnection(); err != nil {
			errs = append(errs, fmt.Errorf("cancel connection: %w", NormalizeError(err)))
		}
	}
	if err := a.dev.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop device: %w", err))
	}
	return errors.Join(errs...)
}

// advertisedUUIDs collects every service UUID an advertisement names.
func advertisedUUIDs(adv ble.Advertisement) []string {
	var uuids []string
	for _, list := range [][]ble.UUID{adv.Services(), adv.OverflowService()} {
		for _, u := range list {
			uuids = append(uuids, u.String())
		}
	}
	return uuids
}

func addressID(addr ble.Addr) string {
	return strings.ToLower(addr.String())
}

var _ device.Adapter = (*Adapter)(nil)
