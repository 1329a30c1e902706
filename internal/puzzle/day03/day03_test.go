package day03

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `vJrwpWtwJgWrhcsFMMfFFhFp
jqHRNqRjqzjGDLGLrsFMfFZSrLrFZsSL
PmmdzqPrVvPwwTWBwg
wMqvLMZHhHMvwLHjbvcjnnSBnvTQFn
ttgJtRGJQctTZtZT
CrZsJsPPZsGzwwsLwLmpwMDw
`

func TestSample(t *testing.T) {
	got, err := Solve(sample)
	require.NoError(t, err)
	assert.Equal(t, "157", got.Part1)
	assert.Equal(t, "70", got.Part2)
}

func TestPriority(t *testing.T) {
	for c, want := range map[byte]int{'a': 1, 'z': 26, 'A': 27, 'Z': 52, 'p': 16, 'L': 38} {
		got, err := priority(c)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(c))
	}
	_, err := priority('1')
	require.Error(t, err)
}

func TestMalformed(t *testing.T) {
	for _, in := range []string{
		"abc\n",           // odd
		"abcd\n",          // nothing shared
		"aa1a\n",          // not a letter
		"aa\nbb\n",        // not a group of three
		"aa\nbb\ncc\n",    // no badge
	} {
		_, err := Solve(in)
		require.Error(t, err, in)
	}
}
