package main

import (
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected devices that expose the Battery Service",
		Long: `Lists devices connected to this computer that report the Battery Service
(0x180F) or the Battery Level characteristic (0x2A19). Devices without a name
are left out. The ID column is what 'blebat info' expects.

With --backend hci (the default outside Linux) the operating system's own
connections are not visible. That backend instead scans for hci.scan_window
(BLEBAT_HCI_SCAN_WINDOW, default 5s) and lists connectable devices advertising
battery information, whether or not they are currently connected.

Examples:
  blebat list
  blebat list --format json
  blebat list --backend hci --timeout 10s`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := commandContext(cmd, s.cfg.Timeout)
	defer cancel()

	progress := NewProgressPrinter(cmd.ErrOrStderr(), "Looking for battery devices on "+describeBackend(s.cfg))
	progress.Start()
	devices, err := s.gateway().ListBatteryDevices(ctx)
	progress.Stop()
	if err != nil {
		return err
	}

	return renderDevices(cmd.OutOrStdout(), devices, s.cfg.OutputFormat)
}
