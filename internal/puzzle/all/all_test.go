package all

import (
	"testing"

	"aoc2022.dev/internal/puzzle"
)

func TestEveryDayRegistered(t *testing.T) {
	got := puzzle.All()
	if len(got) != 11 {
		t.Fatalf("registered=%d want=11", len(got))
	}
	for i, p := range got {
		if p.Day != i+1 {
			t.Fatalf("day[%d]=%d want=%d", i, p.Day, i+1)
		}
		if p.Title == "" {
			t.Fatalf("day %d has no title", p.Day)
		}
	}
}
