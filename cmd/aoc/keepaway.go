package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aoc2022.dev/internal/puzzle"
	"aoc2022.dev/internal/runner"
	"aoc2022.dev/internal/sim/keepaway"
	"aoc2022.dev/internal/sim/tuning"
)

type keepawayFlags struct {
	tuningPath string
	dataDir    string
	mode       string
	rounds     int
	// roundsSet tells an explicit --rounds 0 apart from the unset flag.
	roundsSet bool
}

func newKeepawayCmd(a *app) *cobra.Command {
	var f keepawayFlags
	cmd := &cobra.Command{
		Use:   "keepaway PATH",
		Short: "Run the keep-away simulation and print the monkey business level",
		Long: `Runs the notes at PATH in divide-and-floor mode (relief) and then, on a
fresh simulator, in modulus-bound mode (bounded). Each run prints the product
of the two largest inspection counts on its own line.

With --data, every run is recorded under DATA/runs/<run-id>/ and indexed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.roundsSet = cmd.Flags().Changed("rounds")
			return runKeepaway(cmd, a, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.tuningPath, "tuning", "configs/tuning.yaml", "tuning file; defaults apply when missing")
	cmd.Flags().StringVar(&f.dataDir, "data", "", "record runs below this directory")
	cmd.Flags().StringVar(&f.mode, "mode", "both", "both, relief or bounded")
	cmd.Flags().IntVar(&f.rounds, "rounds", 0, "override the round count of every selected mode (0 runs no rounds)")
	return cmd
}

type plannedRun struct {
	mode   keepaway.Mode
	rounds int
}

// plan lists the runs for mode. When override is set, rounds replaces the
// tuned round count of every run.
func plan(mode string, rounds int, override bool, t tuning.Keepaway) ([]plannedRun, error) {
	relief := plannedRun{keepaway.DivideAndFloor, t.ReliefRounds}
	bounded := plannedRun{keepaway.ModulusBound, t.BoundedRounds}
	var out []plannedRun
	switch mode {
	case "both", "":
		out = []plannedRun{relief, bounded}
	default:
		m, err := keepaway.ParseMode(mode)
		if err != nil {
			return nil, err
		}
		if m == keepaway.DivideAndFloor {
			out = []plannedRun{relief}
		} else {
			out = []plannedRun{bounded}
		}
	}
	if override {
		if rounds < 0 {
			return nil, fmt.Errorf("--rounds must not be negative, got %d", rounds)
		}
		for i := range out {
			out[i].rounds = rounds
		}
	}
	return out, nil
}

func runKeepaway(cmd *cobra.Command, a *app, path string, f keepawayFlags) error {
	ctx := cmd.Context()

	tune, err := tuning.Load(f.tuningPath)
	if err != nil {
		return err
	}
	runs, err := plan(f.mode, f.rounds, f.roundsSet, tune.Keepaway)
	if err != nil {
		return err
	}
	text, err := puzzle.ReadInput(path)
	if err != nil {
		return err
	}
	notes, err := keepaway.Parse(text)
	if err != nil {
		return err
	}

	env, err := runner.OpenEnv(ctx, f.dataDir, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			a.log.Warn("close sinks", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	for _, p := range runs {
		run, err := env.Start(ctx, notes, runner.Options{InputPath: path, Mode: p.mode, Tuning: tune.Keepaway})
		if err != nil {
			return err
		}
		if err := run.Advance(p.rounds); err != nil {
			return err
		}
		res, err := run.Finish(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Product.String())
	}
	return nil
}
