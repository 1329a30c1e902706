package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"aoc2022.dev/internal/sim/keepaway"
)

// JSONLZstdWriter appends JSON lines to zstd-compressed segment files named
// <prefix>-<segment>.jsonl.zst. Switching segment closes the previous file.
// Reopening a segment appends a new zstd frame after the existing ones.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	// OnClose, when set, is called with the path of every finished segment.
	OnClose func(path string)

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(segment string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if segment != w.curSeg || w.w == nil {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *JSONLZstdWriter) rotateLocked(segment string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForSegment(segment)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	var path string
	if w.f != nil {
		path = w.f.Name()
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	if path != "" && err1 == nil && w.OnClose != nil {
		w.OnClose(path)
	}
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(segment string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, segment))
}

const (
	RoundPrefix = "rounds"

	DefaultSegmentRounds = 1000
)

// RoundLogger writes one JSONL entry per round, starting a new segment every
// segmentRounds rounds.
type RoundLogger struct {
	w             *JSONLZstdWriter
	segmentRounds uint64
}

var _ keepaway.RoundLogger = (*RoundLogger)(nil)

func NewRoundLogger(runDir string, segmentRounds int) *RoundLogger {
	if segmentRounds <= 0 {
		segmentRounds = DefaultSegmentRounds
	}
	return &RoundLogger{
		w:             NewJSONLZstdWriter(filepath.Join(runDir, RoundPrefix), RoundPrefix),
		segmentRounds: uint64(segmentRounds),
	}
}

// OnSegmentClosed registers fn to run after each segment file is complete.
func (l *RoundLogger) OnSegmentClosed(fn func(path string)) { l.w.OnClose = fn }

func (l *RoundLogger) WriteRound(e keepaway.RoundLogEntry) error {
	seg := uint64(0)
	if e.Round > 0 {
		seg = (e.Round - 1) / l.segmentRounds
	}
	return l.w.Write(fmt.Sprintf("%08d", seg), e)
}

func (l *RoundLogger) Close() error { return l.w.Close() }
