// Package day11 answers the keep-away puzzle on top of the keepaway simulator.
package day11

import (
	"fmt"

	"aoc2022.dev/internal/puzzle"
	"aoc2022.dev/internal/sim/keepaway"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 11, Title: "Monkey in the Middle", Solve: Solve})
}

type Options struct {
	ReliefDivisor int64
	ReliefRounds  int
	BoundedRounds int
}

func DefaultOptions() Options {
	return Options{ReliefDivisor: keepaway.DefaultReliefDivisor, ReliefRounds: 20, BoundedRounds: 10000}
}

func Solve(input string) (puzzle.Answer, error) {
	return SolveWith(input, DefaultOptions())
}

// SolveWith runs each part on a fresh simulator built from the same notes.
func SolveWith(input string, opts Options) (puzzle.Answer, error) {
	notes, err := keepaway.Parse(input)
	if err != nil {
		return puzzle.Answer{}, err
	}
	parts := []struct {
		mode   keepaway.Mode
		rounds int
	}{
		{keepaway.DivideAndFloor, opts.ReliefRounds},
		{keepaway.ModulusBound, opts.BoundedRounds},
	}
	var out [2]string
	for i, p := range parts {
		sim, err := keepaway.New(keepaway.Config{ReliefDivisor: opts.ReliefDivisor}, notes)
		if err != nil {
			return puzzle.Answer{}, err
		}
		if err := sim.Run(p.rounds, p.mode); err != nil {
			return puzzle.Answer{}, fmt.Errorf("%s: %w", p.mode, err)
		}
		product, err := sim.TopTwoProduct()
		if err != nil {
			return puzzle.Answer{}, err
		}
		out[i] = product.String()
	}
	return puzzle.Answer{Part1: out[0], Part2: out[1]}, nil
}
