package day10

import (
	"fmt"
	"strconv"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 10, Title: "Cathode-Ray Tube", Solve: Solve})
}

const (
	screenWidth  = 40
	screenHeight = 6
)

var signalCycles = []int{20, 60, 100, 140, 180, 220}

// run returns the X register value after every cycle, starting with the
// initial value. states[c-1] is X during cycle c.
func run(lines []string) ([]int, error) {
	x := 1
	states := []int{x}
	for i, line := range lines {
		f := strings.Fields(line)
		switch {
		case len(f) == 1 && f[0] == "noop":
			states = append(states, x)
		case len(f) == 2 && f[0] == "addx":
			v, err := strconv.Atoi(f[1])
			if err != nil {
				return nil, puzzle.LineError(i+1, line, fmt.Errorf("day10: %w", err))
			}
			states = append(states, x)
			x += v
			states = append(states, x)
		default:
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day10: unknown instruction"))
		}
	}
	return states, nil
}

// during returns X during cycle c; past the end of the program X holds.
func during(states []int, c int) int {
	if c-1 < len(states) {
		return states[c-1]
	}
	return states[len(states)-1]
}

func signal(states []int) int {
	sum := 0
	for _, c := range signalCycles {
		sum += c * during(states, c)
	}
	return sum
}

func render(states []int) string {
	rows := make([]string, 0, screenHeight)
	for r := 0; r < screenHeight; r++ {
		var b strings.Builder
		for col := 0; col < screenWidth; col++ {
			x := during(states, r*screenWidth+col+1)
			if d := col - x; d >= -1 && d <= 1 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

func Solve(input string) (puzzle.Answer, error) {
	states, err := run(puzzle.Lines(input))
	if err != nil {
		return puzzle.Answer{}, err
	}
	return puzzle.Answer{Part1: strconv.Itoa(signal(states)), Part2: render(states)}, nil
}
