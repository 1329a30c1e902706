package day09

import (
	"fmt"
	"strconv"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 9, Title: "Rope Bridge", Solve: Solve})
}

type point struct{ x, y int }

type step struct {
	d point
	n int
}

var headings = map[string]point{
	"U": {0, 1},
	"D": {0, -1},
	"L": {-1, 0},
	"R": {1, 0},
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// follow moves tail one step toward head unless they already touch.
func follow(tail, head point) point {
	dx, dy := head.x-tail.x, head.y-tail.y
	if abs(dx) <= 1 && abs(dy) <= 1 {
		return tail
	}
	return point{tail.x + sign(dx), tail.y + sign(dy)}
}

func parse(lines []string) ([]step, error) {
	steps := make([]step, 0, len(lines))
	for i, line := range lines {
		var dir string
		var n int
		if _, err := fmt.Sscanf(line, "%s %d", &dir, &n); err != nil {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day09: %w", err))
		}
		d, ok := headings[dir]
		if !ok || n < 0 {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day09: bad move"))
		}
		steps = append(steps, step{d: d, n: n})
	}
	return steps, nil
}

// tailVisits counts the distinct positions of the last knot of a rope.
func tailVisits(steps []step, knots int) int {
	rope := make([]point, knots)
	seen := map[point]struct{}{rope[knots-1]: {}}
	for _, s := range steps {
		for k := 0; k < s.n; k++ {
			rope[0].x += s.d.x
			rope[0].y += s.d.y
			for i := 1; i < knots; i++ {
				rope[i] = follow(rope[i], rope[i-1])
			}
			seen[rope[knots-1]] = struct{}{}
		}
	}
	return len(seen)
}

func Solve(input string) (puzzle.Answer, error) {
	steps, err := parse(puzzle.Lines(input))
	if err != nil {
		return puzzle.Answer{}, err
	}
	return puzzle.Answer{
		Part1: strconv.Itoa(tailVisits(steps, 2)),
		Part2: strconv.Itoa(tailVisits(steps, 10)),
	}, nil
}
