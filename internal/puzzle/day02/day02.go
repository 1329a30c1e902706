package day02

import (
	"fmt"
	"strconv"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 2, Title: "Rock Paper Scissors", Solve: Solve})
}

type shape int

const (
	rock shape = iota
	paper
	scissors
)

func (s shape) score() int { return int(s) + 1 }

// beats returns the shape s defeats.
func (s shape) beats() shape { return (s + 2) % 3 }

// losesTo returns the shape that defeats s.
func (s shape) losesTo() shape { return (s + 1) % 3 }

type outcome int

const (
	loss outcome = 0
	draw outcome = 3
	win  outcome = 6
)

func play(opponent, own shape) outcome {
	switch {
	case own == opponent:
		return draw
	case own.beats() == opponent:
		return win
	default:
		return loss
	}
}

// choose picks the shape that produces want against opponent.
func choose(opponent shape, want outcome) shape {
	switch want {
	case win:
		return opponent.losesTo()
	case loss:
		return opponent.beats()
	default:
		return opponent
	}
}

type round struct {
	opponent shape
	column   int // 0..2 for X, Y, Z
}

func parse(input string) ([]round, error) {
	lines := puzzle.Lines(input)
	rounds := make([]round, 0, len(lines))
	for i, line := range lines {
		f := strings.Fields(line)
		if len(f) != 2 || len(f[0]) != 1 || len(f[1]) != 1 {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day02: want two codes"))
		}
		opp, col := int(f[0][0]-'A'), int(f[1][0]-'X')
		if opp < 0 || opp > 2 || col < 0 || col > 2 {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day02: unknown code"))
		}
		rounds = append(rounds, round{opponent: shape(opp), column: col})
	}
	return rounds, nil
}

func Solve(input string) (puzzle.Answer, error) {
	rounds, err := parse(input)
	if err != nil {
		return puzzle.Answer{}, err
	}
	var byShape, byOutcome int
	for _, r := range rounds {
		own := shape(r.column)
		byShape += own.score() + int(play(r.opponent, own))

		want := []outcome{loss, draw, win}[r.column]
		byOutcome += choose(r.opponent, want).score() + int(want)
	}
	return puzzle.Answer{Part1: strconv.Itoa(byShape), Part2: strconv.Itoa(byOutcome)}, nil
}
