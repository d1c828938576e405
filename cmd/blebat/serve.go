package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/srg/blebat/internal/ipc"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve battery commands as JSON lines on stdin/stdout",
		Long: `Reads one JSON request per line from stdin and writes one JSON response per
line to stdout. Requests run concurrently; match responses by "seq".

Commands:
  list_battery_devices             -> [{"name": ..., "id": ...}]
  get_battery_info {"id": "..."}   -> [{"battery_level": N|null, "user_descriptor": "..."|null}]
  list_commands                    -> [{"name": ..., "description": ...}]

Example:
  echo '{"seq":1,"cmd":"list_battery_devices"}' | blebat serve

Each request is bounded by --timeout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := ipc.NewDispatcher(s.gateway(), s.cfg.Timeout, s.logger)
	s.logger.Info("Serving battery commands on stdin/stdout")

	err = dispatcher.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
