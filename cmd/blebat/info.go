package main

import (
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <device-id>",
		Short: "Read the battery level(s) of a connected device",
		Long: `Connects to the device and reads every Battery Level characteristic
(0x2A19) under its Battery Service(s), in discovery order, together with the
Characteristic User Description (0x2901) when present.

Levels at or below 20% are shown in red, at or below 50% in yellow.

Examples:
  blebat info /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF
  blebat info aa:bb:cc:dd:ee:ff --backend hci
  blebat info /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	id := args[0]

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, cancel := commandContext(cmd, s.cfg.Timeout)
	defer cancel()

	progress := NewProgressPrinter(cmd.ErrOrStderr(), "Reading battery of "+id)
	progress.Start()
	readings, err := s.gateway().GetBatteryInfo(ctx, id)
	progress.Stop()
	if err != nil {
		return err
	}

	return renderReadings(cmd.OutOrStdout(), id, readings, s.cfg.OutputFormat)
}
