package day06

import (
	"fmt"
	"strconv"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 6, Title: "Tuning Trouble", Solve: Solve})
}

const (
	packetWindow  = 4
	messageWindow = 14
)

// marker returns the count of characters read once the last width of them are
// all distinct, or -1 if that never happens.
func marker(s string, width int) int {
	var seen [256]int
	dup := 0
	for i := 0; i < len(s); i++ {
		if seen[s[i]]++; seen[s[i]] == 2 {
			dup++
		}
		if i >= width {
			out := s[i-width]
			if seen[out]--; seen[out] == 1 {
				dup--
			}
		}
		if i >= width-1 && dup == 0 {
			return i + 1
		}
	}
	return -1
}

func Solve(input string) (puzzle.Answer, error) {
	stream := strings.TrimSpace(input)
	p := marker(stream, packetWindow)
	if p < 0 {
		return puzzle.Answer{}, fmt.Errorf("day06: no start-of-packet marker")
	}
	m := marker(stream, messageWindow)
	if m < 0 {
		return puzzle.Answer{}, fmt.Errorf("day06: no start-of-message marker")
	}
	return puzzle.Answer{Part1: strconv.Itoa(p), Part2: strconv.Itoa(m)}, nil
}
