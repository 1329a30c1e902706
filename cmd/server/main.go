// Command server runs one keep-away simulation at a steady pace and streams
// its rounds to observers over websocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aoc2022.dev/internal/logging"
)

func newRootCmd() *cobra.Command {
	var (
		cfg     serverConfig
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "server [PATH]",
		Short:         "Serve a paced keep-away simulation to observers",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{Verbose: verbose})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			cfg.RoundsSet = cmd.Flags().Changed("rounds")
			switch {
			case len(args) == 1:
				cfg.InputPath = args[0]
			case cfg.Resume == "":
				return fmt.Errorf("input PATH is required unless --resume is set")
			}
			return run(cmd.Context(), cfg, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", "127.0.0.1:8080", "http listen address")
	f.StringVar(&cfg.TuningPath, "tuning", "configs/tuning.yaml", "tuning file; defaults apply when missing")
	f.StringVar(&cfg.DataDir, "data", "data", "runtime data directory (empty disables recording)")
	f.StringVar(&cfg.Mode, "mode", "bounded", "relief or bounded")
	f.IntVar(&cfg.Rounds, "rounds", 0, "rounds to run (default from tuning for the mode)")
	f.StringVar(&cfg.Resume, "resume", "", "run directory to resume from its latest snapshot")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
