package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"aoc2022.dev/internal/persistence/snapshot"
)

const Dir = "final"

// ResultMeta is written next to the archived final snapshot of a run.
type ResultMeta struct {
	RunID       string   `json:"run_id"`
	Mode        string   `json:"mode"`
	Rounds      uint64   `json:"rounds"`
	Modulus     string   `json:"modulus"`
	Product     string   `json:"product"`
	Inspections []uint64 `json:"inspections"`
	Snapshot    string   `json:"snapshot"`
	CreatedAt   string   `json:"created_at"`
}

// ArchiveResult copies the final snapshot of a run into runDir/final/ and
// writes result.json beside it. It returns the paths of both files.
func ArchiveResult(runDir, snapshotPath string, snap snapshot.SnapshotV1, product string) (paths []string, err error) {
	dir := filepath.Join(runDir, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return nil, fmt.Errorf("archive snapshot: %w", err)
	}

	meta := ResultMeta{
		RunID:       snap.Header.RunID,
		Mode:        snap.Mode,
		Rounds:      snap.Header.Round,
		Modulus:     snap.Modulus,
		Product:     product,
		Inspections: make([]uint64, len(snap.Actors)),
		Snapshot:    filepath.Base(dst),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	for i, a := range snap.Actors {
		meta.Inspections[i] = a.Inspections
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	metaPath := filepath.Join(dir, "result.json")
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return nil, err
	}
	return []string{dst, metaPath}, nil
}

// ReadResult loads result.json from a run directory.
func ReadResult(runDir string) (ResultMeta, error) {
	var meta ResultMeta
	b, err := os.ReadFile(filepath.Join(runDir, Dir, "result.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(b, &meta)
	return meta, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
