package day02

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	got, err := Solve("A Y\nB X\nC Z\n")
	require.NoError(t, err)
	assert.Equal(t, "15", got.Part1)
	assert.Equal(t, "12", got.Part2)
}

func TestRules(t *testing.T) {
	assert.Equal(t, win, play(scissors, rock))
	assert.Equal(t, win, play(rock, paper))
	assert.Equal(t, win, play(paper, scissors))
	assert.Equal(t, loss, play(paper, rock))
	assert.Equal(t, draw, play(paper, paper))

	for _, opp := range []shape{rock, paper, scissors} {
		for _, want := range []outcome{loss, draw, win} {
			assert.Equal(t, want, play(opp, choose(opp, want)))
		}
	}
}

func TestMalformed(t *testing.T) {
	for _, in := range []string{"A\n", "A Q\n", "D X\n", "AA X\n"} {
		_, err := Solve(in)
		require.Error(t, err, in)
	}
}
