// Package bluez implements device.Adapter on top of the BlueZ D-Bus API.
//
// Device IDs are BlueZ object paths, e.g. /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
// Only devices BlueZ reports as Connected are listed; nothing here starts
// discovery or powers the adapter.
package bluez

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName = "org.bluez"

	adapterInterface        = "org.bluez.Adapter1"
	deviceInterface         = "org.bluez.Device1"
	gattServiceInterface    = "org.bluez.GattService1"
	gattCharInterface       = "org.bluez.GattCharacteristic1"
	gattDescriptorInterface = "org.bluez.GattDescriptor1"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesGet       = propertiesInterface + ".Get"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"
	getManagedObjects   = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"

	errAlreadyConnected = "org.bluez.Error.AlreadyConnected"
)

// ManagedObjects is the reply of ObjectManager.GetManagedObjects:
// object path → interface → property → value.
type ManagedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Bus is the slice of a D-Bus connection the backend needs.
type Bus interface {
	// Call invokes method on the BlueZ object at path.
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call

	// WatchProperties delivers PropertiesChanged signals emitted by path until
	// stop is called.
	WatchProperties(ctx context.Context, path dbus.ObjectPath) (signals <-chan *dbus.Signal, stop func(), err error)

	Close() error
}

// ConnectBus opens the bus connection used by Open.
// This is a variable so that it can be overridden in tests.
var ConnectBus = func() (Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &systemBus{conn: conn}, nil
}

type systemBus struct {
	conn *dbus.Conn
}

func (b *systemBus) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	return b.conn.Object(busName, path).CallWithContext(ctx, method, 0, args...)
}

func (b *systemBus) WatchProperties(ctx context.Context, path dbus.ObjectPath) (<-chan *dbus.Signal, func(), error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := b.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, nil, fmt.Errorf("failed to add signal match for %s: %w", path, err)
	}

	ch := make(chan *dbus.Signal, 16)
	b.conn.Signal(ch)

	stop := func() {
		b.conn.RemoveSignal(ch)
		_ = b.conn.RemoveMatchSignalContext(context.Background(), opts...)
	}
	return ch, stop, nil
}

func (b *systemBus) Close() error {
	return b.conn.Close()
}

func managedObjects(ctx context.Context, bus Bus) (ManagedObjects, error) {
	var objects ManagedObjects
	if err := bus.Call(ctx, "/", getManagedObjects).Store(&objects); err != nil {
		return nil, fmt.Errorf("GetManagedObjects failed: %w", err)
	}
	return objects, nil
}

func getProperty(ctx context.Context, bus Bus, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	if err := bus.Call(ctx, path, propertiesGet, iface, name).Store(&v); err != nil {
		return v, fmt.Errorf("failed to read %s.%s: %w", iface, name, err)
	}
	return v, nil
}

// changedProperties extracts the changed properties of iface from a
// PropertiesChanged signal emitted by path.
func changedProperties(sig *dbus.Signal, path dbus.ObjectPath, iface string) (map[string]dbus.Variant, bool) {
	if sig == nil || sig.Path != path || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return nil, false
	}
	if name, ok := sig.Body[0].(string); !ok || name != iface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	return changed, ok
}

// waitForTrue blocks until property of iface on path becomes true, checking
// the current value after subscribing so no transition is missed.
func waitForTrue(ctx context.Context, bus Bus, path dbus.ObjectPath, iface, property string) error {
	signals, stop, err := bus.WatchProperties(ctx, path)
	if err != nil {
		return err
	}
	defer stop()

	v, err := getProperty(ctx, bus, path, iface, property)
	if err != nil {
		return err
	}
	if b, ok := v.Value().(bool); ok && b {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s on %s: %w", property, path, ctx.Err())
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("signal channel closed while waiting for %s on %s", property, path)
			}
			changed, ok := changedProperties(sig, path, iface)
			if !ok {
				continue
			}
			if v, present := changed[property]; present {
				if b, ok := v.Value().(bool); ok && b {
					return nil
				}
			}
		}
	}
}

// errorName returns the D-Bus error name carried by err, or "".
func errorName(err error) string {
	var e dbus.Error
	if errors.As(err, &e) {
		return e.Name
	}
	var pe *dbus.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Name
	}
	return ""
}

func boolProp(props map[string]dbus.Variant, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

func stringProp(props map[string]dbus.Variant, name string) (string, bool) {
	v, ok := props[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

func pathProp(props map[string]dbus.Variant, name string) dbus.ObjectPath {
	v, ok := props[name]
	if !ok {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}

func stringsProp(props map[string]dbus.Variant, name string) []string {
	v, ok := props[name]
	if !ok {
		return nil
	}
	s, _ := v.Value().([]string)
	return s
}
