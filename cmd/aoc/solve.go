package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aoc2022.dev/internal/puzzle"
	"aoc2022.dev/internal/watch"
)

// watchDebounce is shortened by tests.
var watchDebounce = watch.DefaultDebounce

func newSolveCmd(a *app) *cobra.Command {
	var watchInput bool
	cmd := &cobra.Command{
		Use:   "solve DAY PATH",
		Short: "Solve both parts of a day's puzzle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day %q is not a number", args[0])
			}
			p, err := puzzle.Lookup(day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := solveOnce(out, p, args[1], a.log); err != nil || !watchInput {
				return err
			}

			w, err := watch.New(args[1], watchDebounce, a.log)
			if err != nil {
				return err
			}
			defer w.Close()
			a.log.Info("watching input", zap.String("path", args[1]))

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-w.Changes():
					if !ok {
						return nil
					}
					// keep watching after a bad edit
					if err := solveOnce(out, p, args[1], a.log); err != nil {
						a.log.Error("solve", zap.Error(err))
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&watchInput, "watch", false, "re-solve whenever the input file changes")
	return cmd
}

func solveOnce(out io.Writer, p puzzle.Puzzle, path string, log *zap.Logger) error {
	input, err := puzzle.ReadInput(path)
	if err != nil {
		return err
	}
	log.Debug("solving", zap.Int("day", p.Day), zap.String("path", path))
	ans, err := p.Solve(input)
	if err != nil {
		return fmt.Errorf("day %d: %w", p.Day, err)
	}
	st := newStyles(out)
	fmt.Fprintln(out, st.heading.Render(fmt.Sprintf("Day %d: %s", p.Day, p.Title)))
	writeAnswer(out, "first", ans.Part1)
	writeAnswer(out, "second", ans.Part2)
	return nil
}

// writeAnswer puts multi-line answers on the lines after the label.
func writeAnswer(out io.Writer, part, answer string) {
	if strings.Contains(answer, "\n") {
		fmt.Fprintf(out, "Answer to %s part:\n%s\n", part, answer)
		return
	}
	fmt.Fprintf(out, "Answer to %s part: %s\n", part, answer)
}
