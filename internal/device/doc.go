// Package device defines the platform-neutral view of the local Bluetooth
// Low Energy adapter and of the GATT tree of a connected peripheral.
//
// Backends live in sub-packages:
//   - bluez: Linux BlueZ over the system D-Bus
//   - go-ble: direct HCI (Linux) or CoreBluetooth (macOS) through go-ble
//
// Every blocking call takes a context.Context; the package adds no timeouts
// or retries of its own. Platform error strings are mapped to the sentinel
// errors of this package by NormalizeError.
package device
