package day01

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 1, Title: "Calorie Counting", Solve: Solve})
}

func Solve(input string) (puzzle.Answer, error) {
	totals, err := parse(input)
	if err != nil {
		return puzzle.Answer{}, err
	}
	return puzzle.Answer{
		Part1: strconv.Itoa(topSum(totals, 1)),
		Part2: strconv.Itoa(topSum(totals, 3)),
	}, nil
}

// parse returns the calorie total carried by each elf.
func parse(input string) ([]int, error) {
	blocks := puzzle.Blocks(input)
	if len(blocks) == 0 {
		return nil, puzzle.ErrEmptyInput
	}
	totals := make([]int, 0, len(blocks))
	for _, block := range blocks {
		sum := 0
		for _, line := range block {
			v, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("day01: %w", err)
			}
			sum += v
		}
		totals = append(totals, sum)
	}
	return totals, nil
}

// topSum adds the n largest totals.
func topSum(totals []int, n int) int {
	sorted := slices.Clone(totals)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	sum := 0
	for i := 0; i < n && i < len(sorted); i++ {
		sum += sorted[i]
	}
	return sum
}
