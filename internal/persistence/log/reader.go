package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"aoc2022.dev/internal/sim/keepaway"
)

// ListSegments returns the round log segments in dir, oldest first.
func ListSegments(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, RoundPrefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadSegment calls fn for every entry in the segment. Returning false from fn
// stops early without error.
func ReadSegment(path string, fn func(keepaway.RoundLogEntry) (bool, error)) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var entry keepaway.RoundLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return false, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		more, err := fn(entry)
		if err != nil || !more {
			return more, err
		}
	}
	return true, sc.Err()
}

// ReadRounds walks every segment in dir in round order.
func ReadRounds(dir string, fn func(keepaway.RoundLogEntry) (bool, error)) error {
	files, err := ListSegments(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no round log segments in %s", dir)
	}
	for _, path := range files {
		more, err := ReadSegment(path, fn)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
