package day05

import (
	"errors"
	"fmt"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 5, Title: "Supply Stacks", Solve: Solve})
}

var ErrEmptyStack = errors.New("day05: stack is empty")

// stacks holds crates bottom first.
type stacks [][]byte

type move struct {
	n, from, to int
}

func (s stacks) clone() stacks {
	out := make(stacks, len(s))
	for i, st := range s {
		out[i] = append([]byte(nil), st...)
	}
	return out
}

// apply moves crates one at a time when oneByOne is set, otherwise as a batch
// keeping their order.
func (s stacks) apply(m move, oneByOne bool) error {
	src := s[m.from]
	if len(src) < m.n {
		return fmt.Errorf("%w: stack %d has %d crates, need %d", ErrEmptyStack, m.from+1, len(src), m.n)
	}
	lifted := src[len(src)-m.n:]
	s[m.from] = src[:len(src)-m.n]
	if oneByOne {
		for i := len(lifted) - 1; i >= 0; i-- {
			s[m.to] = append(s[m.to], lifted[i])
		}
		return nil
	}
	s[m.to] = append(s[m.to], lifted...)
	return nil
}

func (s stacks) tops() (string, error) {
	var b strings.Builder
	for i, st := range s {
		if len(st) == 0 {
			return "", fmt.Errorf("%w: stack %d", ErrEmptyStack, i+1)
		}
		b.WriteByte(st[len(st)-1])
	}
	return b.String(), nil
}

func parseDrawing(lines []string) (stacks, error) {
	if len(lines) < 2 {
		return nil, errors.New("day05: drawing needs crates and a label row")
	}
	labels := strings.Fields(lines[len(lines)-1])
	if len(labels) == 0 {
		return nil, errors.New("day05: missing stack labels")
	}
	s := make(stacks, len(labels))
	for row := len(lines) - 2; row >= 0; row-- {
		line := lines[row]
		for col := range s {
			pos := 1 + 4*col
			if pos >= len(line) || line[pos] == ' ' {
				continue
			}
			c := line[pos]
			if c < 'A' || c > 'Z' {
				return nil, puzzle.LineError(row+1, line, fmt.Errorf("day05: bad crate %q", c))
			}
			s[col] = append(s[col], c)
		}
	}
	return s, nil
}

func parseMove(line string, count int) (move, error) {
	var m move
	if _, err := fmt.Sscanf(line, "move %d from %d to %d", &m.n, &m.from, &m.to); err != nil {
		return m, fmt.Errorf("day05: %w", err)
	}
	if m.n < 0 || m.from < 1 || m.from > count || m.to < 1 || m.to > count {
		return m, fmt.Errorf("day05: move out of range")
	}
	m.from--
	m.to--
	return m, nil
}

func Solve(input string) (puzzle.Answer, error) {
	blocks := puzzle.Blocks(input)
	if len(blocks) != 2 {
		return puzzle.Answer{}, fmt.Errorf("day05: want drawing and moves, got %d sections", len(blocks))
	}
	start, err := parseDrawing(blocks[0])
	if err != nil {
		return puzzle.Answer{}, err
	}
	moves := make([]move, 0, len(blocks[1]))
	for i, line := range blocks[1] {
		m, err := parseMove(strings.TrimSpace(line), len(start))
		if err != nil {
			return puzzle.Answer{}, puzzle.LineError(len(blocks[0])+2+i, line, err)
		}
		moves = append(moves, m)
	}

	var out [2]string
	for part, oneByOne := range []bool{true, false} {
		s := start.clone()
		for _, m := range moves {
			if err := s.apply(m, oneByOne); err != nil {
				return puzzle.Answer{}, err
			}
		}
		if out[part], err = s.tops(); err != nil {
			return puzzle.Answer{}, err
		}
	}
	return puzzle.Answer{Part1: out[0], Part2: out[1]}, nil
}
