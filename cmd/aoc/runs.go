package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"aoc2022.dev/internal/persistence/indexdb"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		dataDir string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded keep-away runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := indexdb.Open(dataDir, os.Getenv("AOC_INDEX_BACKEND"), os.Getenv("AOC_INDEX_PG_DSN"), a.log)
			if err != nil {
				return err
			}
			if idx == nil {
				return errNoIndex
			}
			defer idx.Close()

			runs, err := idx.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.Mode,
					strconv.FormatUint(r.Rounds, 10),
					r.Product,
					strconv.Itoa(r.Snapshots),
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, newStyles(out).table([]string{"RUN", "MODE", "ROUNDS", "PRODUCT", "SNAPSHOTS", "STARTED"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "data", "data directory holding the run index")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

var errNoIndex = errors.New("run index is disabled (AOC_INDEX_BACKEND)")
