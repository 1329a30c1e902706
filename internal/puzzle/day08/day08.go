package day08

import (
	"fmt"
	"strconv"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 8, Title: "Treetop Tree House", Solve: Solve})
}

type grid struct {
	h    [][]int8
	rows int
	cols int
}

var directions = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func parse(lines []string) (grid, error) {
	if len(lines) == 0 {
		return grid{}, puzzle.ErrEmptyInput
	}
	g := grid{rows: len(lines), cols: len(lines[0])}
	for i, line := range lines {
		if len(line) != g.cols {
			return grid{}, puzzle.LineError(i+1, line, fmt.Errorf("day08: row width %d, want %d", len(line), g.cols))
		}
		row := make([]int8, len(line))
		for j := 0; j < len(line); j++ {
			if line[j] < '0' || line[j] > '9' {
				return grid{}, puzzle.LineError(i+1, line, fmt.Errorf("day08: %q is not a digit", line[j]))
			}
			row[j] = int8(line[j] - '0')
		}
		g.h = append(g.h, row)
	}
	return g, nil
}

// look walks from (r, c) in direction d and reports how many trees are in view
// and whether the edge was reached without being blocked.
func (g grid) look(r, c int, d [2]int) (seen int, clear bool) {
	height := g.h[r][c]
	for i, j := r+d[0], c+d[1]; i >= 0 && i < g.rows && j >= 0 && j < g.cols; i, j = i+d[0], j+d[1] {
		seen++
		if g.h[i][j] >= height {
			return seen, false
		}
	}
	return seen, true
}

func Solve(input string) (puzzle.Answer, error) {
	g, err := parse(puzzle.Lines(input))
	if err != nil {
		return puzzle.Answer{}, err
	}
	visible, best := 0, 0
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			score, anyClear := 1, false
			for _, d := range directions {
				seen, clear := g.look(r, c, d)
				score *= seen
				anyClear = anyClear || clear
			}
			if anyClear {
				visible++
			}
			if score > best {
				best = score
			}
		}
	}
	return puzzle.Answer{Part1: strconv.Itoa(visible), Part2: strconv.Itoa(best)}, nil
}
