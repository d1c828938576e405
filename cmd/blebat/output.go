package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/blebat/battery"
	"github.com/srg/blebat/internal/bledb"
	"github.com/srg/blebat/pkg/config"
)

// Levels at or below these are highlighted in table output.
const (
	criticalLevel = 20
	lowLevel      = 50
)

func renderDevices(w io.Writer, devices []battery.DeviceIdentity, format string) error {
	if format == config.FormatJSON {
		return writeJSON(w, devices)
	}

	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No connected devices expose the "+bledb.LookupService("180f")+".")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.ID)
	}
	return tw.Flush()
}

func renderReadings(w io.Writer, id string, readings []battery.Reading, format string) error {
	if format == config.FormatJSON {
		return writeJSON(w, readings)
	}

	if len(readings) == 0 {
		_, err := fmt.Fprintf(w, "%s exposes no %s characteristic.\n", id, bledb.LookupCharacteristic("2a19"))
		return err
	}

	colored := useColor(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	// LEVEL is last so color escapes never skew column widths.
	fmt.Fprintln(tw, "#\tDESCRIPTION\tLEVEL")
	for i, r := range readings {
		desc := r.Description()
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, desc, levelText(r, colored))
	}
	return tw.Flush()
}

// levelText renders the level, highlighted when low and colored is set.
func levelText(r battery.Reading, colored bool) string {
	text := r.Level()
	if !colored || r.BatteryLevel == nil {
		return text
	}

	switch level := int(*r.BatteryLevel); {
	case level <= criticalLevel:
		return paint(text, color.FgRed, color.Bold)
	case level <= lowLevel:
		return paint(text, color.FgYellow)
	default:
		return text
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// useColor reports whether w is a terminal and NO_COLOR is unset.
func useColor(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	return isTerminal(w)
}

// paint colors text regardless of color.NoColor, which only reflects stdout.
func paint(text string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}
