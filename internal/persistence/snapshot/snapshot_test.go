package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", Name(42))

	in := SnapshotV1{
		Header:        Header{Version: Version, RunID: "run-1", Round: 42},
		Mode:          "modulus-bound",
		ReliefDivisor: 3,
		Modulus:       "96577",
		Actors: []ActorV1{
			{Op: "*", Operand: 19, Test: 23, IfTrue: 2, IfFalse: 3, Items: []string{"79", "123456789012345678901234567890"}, Inspections: 7},
			{Op: "+", OperandSelf: true, Test: 19, IfTrue: 0, IfFalse: 0},
		},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header=%+v want=%+v", h, in.Header)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), Name(1))
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 2}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.snap.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestName(t *testing.T) {
	if got := Name(1000); got != "00001000.snap.zst" {
		t.Fatalf("Name=%q", got)
	}
}
