package main

import (
	"context"
	"errors"
	"strings"

	"github.com/srg/blebat/battery"
	"github.com/srg/blebat/internal/device"
)

// FormatUserError renders err for the terminal: the operation's own message,
// followed by a hint when the failure has a usual cause.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		b.WriteString("\n  Hint: the operation timed out; raise --timeout or move closer to the device")
	case errors.Is(err, device.ErrBluetoothOff):
		b.WriteString("\n  Hint: turn Bluetooth on and try again")
	case errors.Is(err, battery.ErrAdapterNotFound):
		b.WriteString("\n  Hint: check that a Bluetooth controller is present, or pick one with --adapter / --backend")
	case errors.Is(err, battery.ErrDeviceNotFound):
		b.WriteString("\n  Hint: the device must be connected; run 'blebat list' to see valid ids")
	}
	return b.String()
}
