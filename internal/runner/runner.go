// Package runner wires a keep-away simulation to its on-disk artifacts: the
// round log, periodic snapshots, the run index and the object-store mirror.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aoc2022.dev/internal/persistence/archive"
	"aoc2022.dev/internal/persistence/indexdb"
	plog "aoc2022.dev/internal/persistence/log"
	"aoc2022.dev/internal/persistence/s3mirror"
	"aoc2022.dev/internal/persistence/snapshot"
	"aoc2022.dev/internal/sim/keepaway"
	"aoc2022.dev/internal/sim/tuning"
)

// Env holds the shared sinks. Every field may be left zero: without DataDir
// nothing is written, and a nil Index or Mirror is skipped.
type Env struct {
	DataDir string
	Index   *indexdb.Index
	Mirror  *s3mirror.Mirror
	Log     *zap.Logger
}

type Options struct {
	InputPath string
	Mode      keepaway.Mode
	Tuning    tuning.Keepaway

	// Loggers receive every round in addition to the persistent sinks.
	Loggers []keepaway.RoundLogger
}

// Run is one simulation from its initial state to Finish. It is not safe for
// concurrent use.
type Run struct {
	ID  string
	Dir string
	Sim *keepaway.Simulator

	env  Env
	mode keepaway.Mode
	log  *zap.Logger

	rounds *plog.RoundLogger
	every  uint64

	snaps    chan snapshot.SnapshotV1
	snapWG   sync.WaitGroup
	snapErr  error
	lastSnap string

	finished bool
}

type Result struct {
	RunID       string
	Mode        keepaway.Mode
	Rounds      uint64
	Product     *big.Int
	Inspections []uint64
}

// RunsDir is where run directories live below the data directory.
func RunsDir(dataDir string) string { return filepath.Join(dataDir, "runs") }

func (e Env) Start(ctx context.Context, notes keepaway.Notes, opts Options) (*Run, error) {
	id := uuid.NewString()
	sim, err := keepaway.New(keepaway.Config{RunID: id, ReliefDivisor: opts.Tuning.ReliefDivisor}, notes)
	if err != nil {
		return nil, err
	}
	return e.attach(ctx, sim, opts)
}

// Resume continues a run from a snapshot under the snapshot's run ID.
func (e Env) Resume(ctx context.Context, snap snapshot.SnapshotV1, opts Options) (*Run, error) {
	sim, err := keepaway.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return e.attach(ctx, sim, opts)
}

func (e Env) attach(ctx context.Context, sim *keepaway.Simulator, opts Options) (*Run, error) {
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	r := &Run{
		ID:   sim.Config().RunID,
		Sim:  sim,
		env:  e,
		mode: opts.Mode,
	}
	r.log = e.Log.With(zap.String("run", r.ID), zap.String("mode", opts.Mode.String()))

	if e.DataDir != "" {
		r.Dir = filepath.Join(RunsDir(e.DataDir), r.ID)
		if err := os.MkdirAll(r.Dir, 0o755); err != nil {
			return nil, err
		}
		r.rounds = plog.NewRoundLogger(r.Dir, opts.Tuning.LogSegmentRounds)
		r.rounds.OnSegmentClosed(e.Mirror.Enqueue)
		sim.AddRoundLogger(r.rounds)

		if opts.Tuning.SnapshotEveryRounds > 0 {
			r.every = uint64(opts.Tuning.SnapshotEveryRounds)
		}
		r.snaps = make(chan snapshot.SnapshotV1, 2)
		r.snapWG.Add(1)
		go r.snapshotLoop()
		sim.AddRoundLogger(snapshotTrigger{r})
	}
	if e.Index != nil {
		sim.AddRoundLogger(e.Index)
		err := e.Index.RecordRun(ctx, indexdb.RunRow{
			RunID:         r.ID,
			InputPath:     opts.InputPath,
			Mode:          opts.Mode.String(),
			ReliefDivisor: sim.Config().ReliefDivisor,
			Modulus:       sim.Modulus().String(),
			Actors:        len(sim.Actors()),
			StartedAt:     time.Now(),
		})
		if err != nil {
			r.log.Warn("index run", zap.Error(err))
		}
	}
	for _, l := range opts.Loggers {
		sim.AddRoundLogger(l)
	}
	r.log.Info("run started", zap.String("dir", r.Dir), zap.Uint64("round", sim.Round()))
	return r, nil
}

// Advance runs n rounds in the run's mode.
func (r *Run) Advance(n int) error { return r.Sim.Run(n, r.mode) }

// Step runs a single round.
func (r *Run) Step() (round uint64, digest string) { return r.Sim.StepOnce(r.mode) }

type snapshotTrigger struct{ r *Run }

func (t snapshotTrigger) WriteRound(e keepaway.RoundLogEntry) error {
	if t.r.every == 0 || e.Round%t.r.every != 0 {
		return nil
	}
	t.r.snaps <- t.r.Sim.ExportSnapshot()
	return nil
}

func (r *Run) snapshotLoop() {
	defer r.snapWG.Done()
	for snap := range r.snaps {
		if _, err := r.writeSnapshot(snap); err != nil {
			r.snapErr = errors.Join(r.snapErr, err)
			r.log.Warn("snapshot write", zap.Uint64("round", snap.Header.Round), zap.Error(err))
		}
	}
}

func (r *Run) writeSnapshot(snap snapshot.SnapshotV1) (string, error) {
	path := filepath.Join(r.Dir, "snapshots", snapshot.Name(snap.Header.Round))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	r.lastSnap = path
	r.env.Index.RecordSnapshot(path, snap)
	r.env.Mirror.Enqueue(path)
	r.log.Debug("snapshot", zap.String("path", path))
	return path, nil
}

// Finish writes the final snapshot and result, closes the round log and
// records the outcome. It may be called once.
func (r *Run) Finish(ctx context.Context) (Result, error) {
	if r.finished {
		return Result{}, fmt.Errorf("run %s already finished", r.ID)
	}
	r.finished = true

	product, err := r.Sim.TopTwoProduct()
	if err != nil {
		return Result{}, err
	}
	res := Result{
		RunID:       r.ID,
		Mode:        r.mode,
		Rounds:      r.Sim.Round(),
		Product:     product,
		Inspections: r.Sim.Inspections(),
	}

	var errs error
	if r.Dir != "" {
		close(r.snaps)
		r.snapWG.Wait()
		errs = errors.Join(errs, r.snapErr)

		snap := r.Sim.ExportSnapshot()
		path := filepath.Join(r.Dir, "snapshots", snapshot.Name(snap.Header.Round))
		if r.lastSnap != path {
			if path, err = r.writeSnapshot(snap); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		if path != "" {
			archived, err := archive.ArchiveResult(r.Dir, path, snap, product.String())
			errs = errors.Join(errs, err)
			for _, p := range archived {
				r.env.Mirror.Enqueue(p)
			}
		}
		errs = errors.Join(errs, r.rounds.Close())
	}

	if r.env.Index != nil {
		r.env.Index.RecordResult(indexdb.ResultRow{
			RunID:       r.ID,
			Rounds:      res.Rounds,
			Product:     product.String(),
			Inspections: res.Inspections,
		})
		if err := r.env.Index.Flush(ctx); err != nil {
			r.log.Warn("index flush", zap.Error(err))
		}
	}

	r.log.Info("run finished", zap.Uint64("rounds", res.Rounds), zap.String("product", product.String()))
	return res, errs
}

// RequestSnapshot queues a snapshot of the current state for writing and
// returns its round. It must be called from the goroutine stepping the run.
func (r *Run) RequestSnapshot() (uint64, error) {
	if r.Dir == "" {
		return 0, errors.New("run has no data directory")
	}
	if r.finished {
		return 0, fmt.Errorf("run %s already finished", r.ID)
	}
	snap := r.Sim.ExportSnapshot()
	r.snaps <- snap
	return snap.Header.Round, nil
}
