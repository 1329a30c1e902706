package day07

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"aoc2022.dev/internal/puzzle"
)

func init() {
	puzzle.Register(puzzle.Puzzle{Day: 7, Title: "No Space Left On Device", Solve: Solve})
}

const (
	smallDirLimit = 100000
	diskSize      = 70000000
	spaceNeeded   = 30000000
)

type dir struct {
	parent   *dir
	children map[string]*dir
	files    map[string]int
	size     int
}

func newDir(parent *dir) *dir {
	return &dir{parent: parent, children: map[string]*dir{}, files: map[string]int{}}
}

// total fills in size for d and every descendant.
func (d *dir) total() int {
	sum := 0
	for _, n := range d.files {
		sum += n
	}
	for _, c := range d.children {
		sum += c.total()
	}
	d.size = sum
	return sum
}

func (d *dir) walk(fn func(*dir)) {
	fn(d)
	for _, c := range d.children {
		c.walk(fn)
	}
}

// replay rebuilds the tree from a terminal transcript.
func replay(lines []string) (*dir, error) {
	root := newDir(nil)
	cwd := root
	listing := false
	for i, line := range lines {
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		if f[0] == "$" {
			listing = false
			switch {
			case len(f) == 2 && f[1] == "ls":
				listing = true
			case len(f) == 3 && f[1] == "cd":
				switch f[2] {
				case "/":
					cwd = root
				case "..":
					if cwd.parent == nil {
						return nil, puzzle.LineError(i+1, line, fmt.Errorf("day07: cd above root"))
					}
					cwd = cwd.parent
				default:
					next, ok := cwd.children[f[2]]
					if !ok {
						next = newDir(cwd)
						cwd.children[f[2]] = next
					}
					cwd = next
				}
			default:
				return nil, puzzle.LineError(i+1, line, fmt.Errorf("day07: unknown command"))
			}
			continue
		}
		if !listing || len(f) != 2 {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day07: unexpected output"))
		}
		if f[0] == "dir" {
			if _, ok := cwd.children[f[1]]; !ok {
				cwd.children[f[1]] = newDir(cwd)
			}
			continue
		}
		n, err := strconv.Atoi(f[0])
		if err != nil || n < 0 {
			return nil, puzzle.LineError(i+1, line, fmt.Errorf("day07: bad file size"))
		}
		cwd.files[f[1]] = n
	}
	root.total()
	return root, nil
}

func Solve(input string) (puzzle.Answer, error) {
	root, err := replay(puzzle.Lines(input))
	if err != nil {
		return puzzle.Answer{}, err
	}

	var sizes []int
	root.walk(func(d *dir) { sizes = append(sizes, d.size) })
	sort.Ints(sizes)

	small := 0
	for _, s := range sizes {
		if s < smallDirLimit {
			small += s
		}
	}

	need := spaceNeeded - (diskSize - root.size)
	free := root.size
	for _, s := range sizes {
		if s >= need {
			free = s
			break
		}
	}
	return puzzle.Answer{Part1: strconv.Itoa(small), Part2: strconv.Itoa(free)}, nil
}
