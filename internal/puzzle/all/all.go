// Package all registers every daily solver.
package all

import (
	_ "aoc2022.dev/internal/puzzle/day01"
	_ "aoc2022.dev/internal/puzzle/day02"
	_ "aoc2022.dev/internal/puzzle/day03"
	_ "aoc2022.dev/internal/puzzle/day04"
	_ "aoc2022.dev/internal/puzzle/day05"
	_ "aoc2022.dev/internal/puzzle/day06"
	_ "aoc2022.dev/internal/puzzle/day07"
	_ "aoc2022.dev/internal/puzzle/day08"
	_ "aoc2022.dev/internal/puzzle/day09"
	_ "aoc2022.dev/internal/puzzle/day10"
	_ "aoc2022.dev/internal/puzzle/day11"
)
