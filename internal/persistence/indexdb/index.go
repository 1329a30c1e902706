package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"aoc2022.dev/internal/persistence/snapshot"
	"aoc2022.dev/internal/sim/keepaway"
)

const queueCapacity = 65536

// Index records runs, rounds, snapshots and results in a SQL database. A single
// writer goroutine owns the connection. Round, snapshot and result writes are
// dropped when it falls behind; the round log stays the source of truth.
type Index struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRound    atomic.Uint64
	dropSnapshot atomic.Uint64
	dropResult   atomic.Uint64
	writeErrors  atomic.Uint64
}

var _ keepaway.RoundLogger = (*Index)(nil)

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqRound
	reqSnapshot
	reqResult
	reqFlush
)

type req struct {
	kind reqKind

	run      RunRow
	round    keepaway.RoundLogEntry
	snapshot snapshotRow
	result   ResultRow

	// done is set for synchronous requests.
	done chan error
}

type snapshotRow struct {
	RunID string
	Round uint64
	Path  string
}

// RunRow describes a simulation run at start.
type RunRow struct {
	RunID         string
	InputPath     string
	Mode          string
	ReliefDivisor int64
	Modulus       string
	Actors        int
	StartedAt     time.Time
}

// ResultRow is the final readout of a run.
type ResultRow struct {
	RunID       string
	Rounds      uint64
	Product     string
	Inspections []uint64
	FinishedAt  time.Time
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropRoundTotal    uint64
	DropSnapshotTotal uint64
	DropResultTotal   uint64
	WriteErrorTotal   uint64
}

func open(db *sql.DB, d dialect, logger *zap.Logger) (*Index, error) {
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s schema: %w", d, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Index{
		db:      db,
		dialect: d,
		log:     logger.With(zap.String("index", d.String())),
		ch:      make(chan req, queueCapacity),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func (s *Index) Backend() string { return s.dialect.String() }

// Close drains pending writes and closes the database.
func (s *Index) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Index) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRoundTotal:    s.dropRound.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropResultTotal:   s.dropResult.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// RecordRun inserts the run row and commits before returning, so later rows
// always have a parent. Unlike the other writes it is never dropped.
func (s *Index) RecordRun(ctx context.Context, r RunRow) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	done := make(chan error, 1)
	select {
	case s.ch <- req{kind: reqRun, run: r, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush commits everything queued so far.
func (s *Index) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan error, 1)
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Index) WriteRound(entry keepaway.RoundLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRound, round: entry}:
	default:
		s.dropRound.Add(1)
	}
	return nil
}

func (s *Index) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{RunID: snap.Header.RunID, Round: snap.Header.Round, Path: path}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *Index) RecordResult(r ResultRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	select {
	case s.ch <- req{kind: reqResult, result: r}:
	default:
		s.dropResult.Add(1)
	}
}

const (
	commitEvery   = 2000
	commitMaxWait = 2 * time.Second
)

func (s *Index) loop() {
	ctx := context.Background()

	prepare := func(name, q string) *sql.Stmt {
		st, err := s.db.Prepare(s.dialect.rebind(q))
		if err != nil {
			s.log.Error("prepare", zap.String("stmt", name), zap.Error(err))
			return nil
		}
		return st
	}
	insertRun := prepare("run", `INSERT INTO runs(run_id,input_path,mode,relief_divisor,modulus,actors,started_at) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET input_path=excluded.input_path, mode=excluded.mode, relief_divisor=excluded.relief_divisor,
			modulus=excluded.modulus, actors=excluded.actors, started_at=excluded.started_at`)
	insertRound := prepare("round", `INSERT INTO rounds(run_id,round,digest,inspected,inspections) VALUES(?,?,?,?,?)
		ON CONFLICT(run_id,round) DO UPDATE SET digest=excluded.digest, inspected=excluded.inspected, inspections=excluded.inspections`)
	insertSnapshot := prepare("snapshot", `INSERT INTO snapshots(run_id,round,path) VALUES(?,?,?)
		ON CONFLICT(run_id,round) DO UPDATE SET path=excluded.path`)
	insertResult := prepare("result", `INSERT INTO results(run_id,rounds,product,inspections,finished_at) VALUES(?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET rounds=excluded.rounds, product=excluded.product, inspections=excluded.inspections, finished_at=excluded.finished_at`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertRound, insertSnapshot, insertResult} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)

	begin := func() error {
		if tx != nil {
			return nil
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
		return nil
	}
	commit := func() error {
		if tx == nil {
			return nil
		}
		err := tx.Commit()
		if err != nil {
			s.writeErrors.Add(1)
			s.log.Warn("commit", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
		return err
	}
	exec := func(st *sql.Stmt, args ...any) error {
		if st == nil {
			s.writeErrors.Add(1)
			return fmt.Errorf("statement not prepared")
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.writeErrors.Add(1)
			s.log.Warn("index write", zap.Error(err))
			_ = tx.Rollback()
			tx = nil
			return err
		}
		opCount++
		return nil
	}

	handle := func(r req) error {
		if r.kind == reqFlush {
			return commit()
		}
		if err := begin(); err != nil {
			s.writeErrors.Add(1)
			s.log.Warn("begin tx", zap.Error(err))
			return err
		}
		switch r.kind {
		case reqRun:
			if err := exec(insertRun, r.run.RunID, r.run.InputPath, r.run.Mode, r.run.ReliefDivisor, r.run.Modulus,
				r.run.Actors, r.run.StartedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				return err
			}
			return commit()
		case reqRound:
			inspected, _ := json.Marshal(r.round.Inspected)
			inspections, _ := json.Marshal(r.round.Inspections)
			return exec(insertRound, r.round.RunID, int64(r.round.Round), r.round.Digest, string(inspected), string(inspections))
		case reqSnapshot:
			return exec(insertSnapshot, r.snapshot.RunID, int64(r.snapshot.Round), r.snapshot.Path)
		case reqResult:
			inspections, _ := json.Marshal(r.result.Inspections)
			return exec(insertResult, r.result.RunID, int64(r.result.Rounds), r.result.Product, string(inspections),
				r.result.FinishedAt.UTC().Format(time.RFC3339Nano))
		}
		return nil
	}

	ticker := time.NewTicker(commitMaxWait / 4)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				_ = commit()
				return
			}
			err := handle(r)
			if r.done != nil {
				r.done <- err
			}
			if tx != nil && opCount >= commitEvery {
				_ = commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				_ = commit()
			}
		}
	}
}
