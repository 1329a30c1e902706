package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aoc2022.dev/internal/puzzle"
)

func newDaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "days",
		Short: "List the available puzzles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, p := range puzzle.All() {
				rows = append(rows, []string{strconv.Itoa(p.Day), p.Title})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, newStyles(out).table([]string{"DAY", "TITLE"}, rows))
			return nil
		},
	}
}
