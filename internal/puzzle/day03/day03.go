package day03

import (
	"fmt"
	"math/bits"
	"strconv"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 3, Title: "Rucksack Reorganization", Solve: Solve})
}

// itemSet is a bitset indexed by priority (1..52).
type itemSet uint64

func priority(c byte) (int, error) {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 1, nil
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 27, nil
	}
	return 0, fmt.Errorf("day03: %q is not a letter", c)
}

func setOf(s string) (itemSet, error) {
	var set itemSet
	for i := 0; i < len(s); i++ {
		p, err := priority(s[i])
		if err != nil {
			return 0, err
		}
		set |= 1 << p
	}
	return set, nil
}

// only returns the priority of the single item in set.
func (s itemSet) only() (int, error) {
	if bits.OnesCount64(uint64(s)) != 1 {
		return 0, fmt.Errorf("day03: want exactly one shared item, got %d", bits.OnesCount64(uint64(s)))
	}
	return bits.TrailingZeros64(uint64(s)), nil
}

func Solve(input string) (puzzle.Answer, error) {
	lines := puzzle.Lines(input)

	var compartments int
	for i, line := range lines {
		if len(line)%2 != 0 {
			return puzzle.Answer{}, puzzle.LineError(i+1, line, fmt.Errorf("day03: odd item count"))
		}
		a, err := setOf(line[:len(line)/2])
		if err != nil {
			return puzzle.Answer{}, puzzle.LineError(i+1, line, err)
		}
		b, err := setOf(line[len(line)/2:])
		if err != nil {
			return puzzle.Answer{}, puzzle.LineError(i+1, line, err)
		}
		p, err := (a & b).only()
		if err != nil {
			return puzzle.Answer{}, puzzle.LineError(i+1, line, err)
		}
		compartments += p
	}

	if len(lines)%3 != 0 {
		return puzzle.Answer{}, fmt.Errorf("day03: %d rucksacks do not form groups of three", len(lines))
	}
	var badges int
	for g := 0; g < len(lines); g += 3 {
		shared := ^itemSet(0)
		for _, line := range lines[g : g+3] {
			s, err := setOf(line)
			if err != nil {
				return puzzle.Answer{}, err
			}
			shared &= s
		}
		p, err := shared.only()
		if err != nil {
			return puzzle.Answer{}, fmt.Errorf("group starting at line %d: %w", g+1, err)
		}
		badges += p
	}

	return puzzle.Answer{Part1: strconv.Itoa(compartments), Part2: strconv.Itoa(badges)}, nil
}
