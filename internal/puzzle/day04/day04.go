package day04

import (
	"fmt"
	"strconv"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 4, Title: "Camp Cleanup", Solve: Solve})
}

type span struct{ lo, hi int }

func (s span) contains(o span) bool { return s.lo <= o.lo && o.hi <= s.hi }

func (s span) overlaps(o span) bool { return s.lo <= o.hi && o.lo <= s.hi }

func parseLine(line string) (a, b span, err error) {
	if _, err = fmt.Sscanf(line, "%d-%d,%d-%d", &a.lo, &a.hi, &b.lo, &b.hi); err != nil {
		return a, b, fmt.Errorf("day04: %w", err)
	}
	if a.lo > a.hi || b.lo > b.hi {
		return a, b, fmt.Errorf("day04: reversed range")
	}
	return a, b, nil
}

func Solve(input string) (puzzle.Answer, error) {
	var contained, overlapping int
	for i, line := range puzzle.Lines(input) {
		a, b, err := parseLine(line)
		if err != nil {
			return puzzle.Answer{}, puzzle.LineError(i+1, line, err)
		}
		if a.contains(b) || b.contains(a) {
			contained++
		}
		if a.overlaps(b) {
			overlapping++
		}
	}
	return puzzle.Answer{Part1: strconv.Itoa(contained), Part2: strconv.Itoa(overlapping)}, nil
}
