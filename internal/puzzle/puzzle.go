// Package puzzle holds the registry of daily solvers and small input helpers
// shared by them.
package puzzle

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

type Answer struct {
	Part1 string
	Part2 string
}

type Solver func(input string) (Answer, error)

type Puzzle struct {
	Day   int
	Title string
	Solve Solver
}

var (
	mu       sync.RWMutex
	registry = map[int]Puzzle{}
)

var (
	ErrUnknownDay = errors.New("puzzle: no solver registered for day")
	ErrEmptyInput = errors.New("puzzle: input is empty")
)

// Register adds p to the registry. Days register from init; a duplicate is a
// programming error and panics.
func Register(p Puzzle) {
	if p.Day <= 0 || p.Solve == nil {
		panic(fmt.Sprintf("puzzle: invalid registration for day %d", p.Day))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[p.Day]; dup {
		panic(fmt.Sprintf("puzzle: day %d registered twice", p.Day))
	}
	registry[p.Day] = p
}

func Lookup(day int) (Puzzle, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[day]
	if !ok {
		return Puzzle{}, fmt.Errorf("%w %d", ErrUnknownDay, day)
	}
	return p, nil
}

// All returns the registered puzzles ordered by day.
func All() []Puzzle {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Puzzle, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// ReadInput loads a puzzle input and normalizes line endings.
func ReadInput(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("puzzle: expected a file path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}
	return text, nil
}

// Lines splits input into lines, dropping the trailing newline.
func Lines(input string) []string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return nil
	}
	return strings.Split(input, "\n")
}

// Blocks splits input on blank lines.
func Blocks(input string) [][]string {
	var (
		out [][]string
		cur []string
	)
	for _, line := range strings.Split(strings.TrimRight(input, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// LineError wraps err with the one-based line number it occurred on.
func LineError(line int, text string, err error) error {
	return fmt.Errorf("line %d %q: %w", line, text, err)
}
