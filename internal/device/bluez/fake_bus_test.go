package bluez

import (
	"context"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fakeBus is an in-memory BlueZ object tree.
type fakeBus struct {
	mu sync.Mutex

	objects     ManagedObjects
	values      map[dbus.ObjectPath][]byte
	readErrs    map[dbus.ObjectPath]error
	connectErrs map[dbus.ObjectPath]error
	managedErr  error

	calls    []string
	watchers map[dbus.ObjectPath][]chan *dbus.Signal
	watched  chan dbus.ObjectPath
	closed   bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		objects:     ManagedObjects{},
		values:      map[dbus.ObjectPath][]byte{},
		readErrs:    map[dbus.ObjectPath]error{},
		connectErrs: map[dbus.ObjectPath]error{},
		watchers:    map[dbus.ObjectPath][]chan *dbus.Signal{},
		watched:     make(chan dbus.ObjectPath, 16),
	}
}

func (b *fakeBus) addObject(p dbus.ObjectPath, iface string, props map[string]interface{}) *fakeBus {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.objects[p] == nil {
		b.objects[p] = map[string]map[string]dbus.Variant{}
	}
	variants := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		variants[k] = dbus.MakeVariant(v)
	}
	b.objects[p][iface] = variants
	return b
}

func (b *fakeBus) addAdapter(name string, powered bool) *fakeBus {
	return b.addObject(dbus.ObjectPath("/org/bluez/"+name), adapterInterface, map[string]interface{}{
		"Address": "00:11:22:33:44:55",
		"Powered": powered,
	})
}

// addDevice adds a Device1 object; an empty name leaves the Name property out.
func (b *fakeBus) addDevice(adapter, addr, name string, connected bool, uuids ...string) dbus.ObjectPath {
	p := dbus.ObjectPath("/org/bluez/" + adapter + "/dev_" + strings.ReplaceAll(addr, ":", "_"))
	props := map[string]interface{}{
		"Adapter":          dbus.ObjectPath("/org/bluez/" + adapter),
		"Address":          addr,
		"Connected":        connected,
		"ServicesResolved": connected,
		"UUIDs":            uuids,
	}
	if name != "" {
		props["Name"] = name
	}
	b.addObject(p, deviceInterface, props)
	return p
}

func (b *fakeBus) addGATT(parent dbus.ObjectPath, child, iface, parentProp, uuid string) dbus.ObjectPath {
	p := dbus.ObjectPath(string(parent) + "/" + child)
	b.addObject(p, iface, map[string]interface{}{
		"UUID":     uuid,
		parentProp: parent,
	})
	return p
}

func (b *fakeBus) addService(dev dbus.ObjectPath, handle, uuid string) dbus.ObjectPath {
	return b.addGATT(dev, "service"+handle, gattServiceInterface, "Device", uuid)
}

func (b *fakeBus) addCharacteristic(svc dbus.ObjectPath, handle, uuid string, value []byte) dbus.ObjectPath {
	p := b.addGATT(svc, "char"+handle, gattCharInterface, "Service", uuid)
	b.setValue(p, value)
	return p
}

func (b *fakeBus) addDescriptor(char dbus.ObjectPath, handle, uuid string, value []byte) dbus.ObjectPath {
	p := b.addGATT(char, "desc"+handle, gattDescriptorInterface, "Characteristic", uuid)
	b.setValue(p, value)
	return p
}

func (b *fakeBus) setValue(p dbus.ObjectPath, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[p] = value
}

// setProperty updates a property and emits PropertiesChanged to watchers.
func (b *fakeBus) setProperty(p dbus.ObjectPath, iface, name string, value interface{}) {
	b.mu.Lock()
	v := dbus.MakeVariant(value)
	b.objects[p][iface][name] = v
	watchers := append([]chan *dbus.Signal(nil), b.watchers[p]...)
	b.mu.Unlock()

	sig := &dbus.Signal{
		Path: p,
		Name: propertiesChanged,
		Body: []interface{}{iface, map[string]dbus.Variant{name: v}, []string{}},
	}
	for _, ch := range watchers {
		ch <- sig
	}
}

func (b *fakeBus) Call(ctx context.Context, p dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, method+" "+string(p))

	if err := ctx.Err(); err != nil {
		return &dbus.Call{Err: err}
	}

	switch {
	case method == getManagedObjects:
		if b.managedErr != nil {
			return &dbus.Call{Err: b.managedErr}
		}
		return &dbus.Call{Body: []interface{}{b.snapshot()}}

	case method == propertiesGet:
		iface, _ := args[0].(string)
		name, _ := args[1].(string)
		v, ok := b.objects[p][iface][name]
		if !ok {
			return &dbus.Call{Err: dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs", Body: []interface{}{"No such property " + name}}}
		}
		return &dbus.Call{Body: []interface{}{v}}

	case method == deviceInterface+".Connect":
		if err, ok := b.connectErrs[p]; ok {
			return &dbus.Call{Err: err}
		}
		return &dbus.Call{}

	case strings.HasSuffix(method, ".ReadValue"):
		if err, ok := b.readErrs[p]; ok {
			return &dbus.Call{Err: err}
		}
		return &dbus.Call{Body: []interface{}{b.values[p]}}
	}

	return &dbus.Call{Err: dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod", Body: []interface{}{method}}}
}

func (b *fakeBus) snapshot() ManagedObjects {
	out := make(ManagedObjects, len(b.objects))
	for p, ifaces := range b.objects {
		out[p] = make(map[string]map[string]dbus.Variant, len(ifaces))
		for iface, props := range ifaces {
			cp := make(map[string]dbus.Variant, len(props))
			for k, v := range props {
				cp[k] = v
			}
			out[p][iface] = cp
		}
	}
	return out
}

func (b *fakeBus) WatchProperties(_ context.Context, p dbus.ObjectPath) (<-chan *dbus.Signal, func(), error) {
	ch := make(chan *dbus.Signal, 8)

	b.mu.Lock()
	b.watchers[p] = append(b.watchers[p], ch)
	b.mu.Unlock()
	b.watched <- p

	stop := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.watchers[p]
		for i, c := range list {
			if c == ch {
				b.watchers[p] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return ch, stop, nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) called(method string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if strings.HasPrefix(c, method+" ") {
			return true
		}
	}
	return false
}

func (b *fakeBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
