package puzzle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	solve := func(string) (Answer, error) { return Answer{"1", "2"}, nil }
	Register(Puzzle{Day: 90, Title: "b", Solve: solve})
	Register(Puzzle{Day: 89, Title: "a", Solve: solve})
	t.Cleanup(func() {
		mu.Lock()
		delete(registry, 89)
		delete(registry, 90)
		mu.Unlock()
	})

	p, err := Lookup(90)
	require.NoError(t, err)
	assert.Equal(t, "b", p.Title)

	_, err = Lookup(91)
	require.ErrorIs(t, err, ErrUnknownDay)

	all := All()
	require.GreaterOrEqual(t, len(all), 2)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Day, all[i].Day)
	}

	assert.Panics(t, func() { Register(Puzzle{Day: 90, Solve: solve}) })
	assert.Panics(t, func() { Register(Puzzle{Day: 92}) })
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\n"), 0o644))

	got, err := ReadInput(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", got)

	_, err = ReadInput("")
	require.Error(t, err)

	_, err = ReadInput(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))
	_, err = ReadInput(empty)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestLinesAndBlocks(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Lines("a\nb\n"))
	assert.Nil(t, Lines(""))
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, Blocks("1\n2\n\n3\n"))
	assert.Equal(t, [][]string{{"1"}, {"2"}}, Blocks("\n1\n\n\n2"))
}
