package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aoc2022.dev/internal/metrics"
	"aoc2022.dev/internal/observerproto"
	"aoc2022.dev/internal/persistence/snapshot"
	"aoc2022.dev/internal/puzzle"
	"aoc2022.dev/internal/runner"
	"aoc2022.dev/internal/sim/keepaway"
	"aoc2022.dev/internal/sim/tuning"
	"aoc2022.dev/internal/transport/observer"
)

type serverConfig struct {
	Addr       string
	TuningPath string
	DataDir    string
	Mode       string
	Rounds     int
	// RoundsSet is false when the tuned round count for the mode applies.
	RoundsSet bool
	Resume    string
	InputPath string
}

func run(ctx context.Context, cfg serverConfig, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, cfg, logger)
}

// serve owns ln and returns once ctx is done and everything has shut down.
func serve(ctx context.Context, ln net.Listener, cfg serverConfig, logger *zap.Logger) error {
	defer ln.Close()

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		return err
	}
	mode, err := keepaway.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	rounds := cfg.Rounds
	if cfg.RoundsSet && rounds < 0 {
		return fmt.Errorf("rounds must not be negative, got %d", rounds)
	}
	if !cfg.RoundsSet {
		rounds = tune.Keepaway.BoundedRounds
		if mode == keepaway.DivideAndFloor {
			rounds = tune.Keepaway.ReliefRounds
		}
	}

	env, err := runner.OpenEnv(ctx, cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Warn("close sinks", zap.Error(err))
		}
	}()

	m := metrics.New()
	m.RegisterIndex(env.Index)
	m.RegisterMirror(env.Mirror)

	opts := runner.Options{
		InputPath: cfg.InputPath,
		Mode:      mode,
		Tuning:    tune.Keepaway,
		Loggers:   []keepaway.RoundLogger{m},
	}
	r, err := startRun(ctx, env, cfg, opts)
	if err != nil {
		return err
	}

	obs := observer.NewServer(bootstrap(r, mode, tune), tune.Observer.QueueDepth, logger)
	r.Sim.AddRoundLogger(obs)
	m.RegisterObserver(obs)

	snapReq := make(chan chan snapshotReply)
	srv := &http.Server{
		Handler:           newRouter(obs, m, snapReq),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return stepLoop(gctx, r, rounds, tune.Observer.RoundsPerSecond, snapReq, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		obs.Close()
		return err
	})
	return g.Wait()
}

func startRun(ctx context.Context, env runner.Env, cfg serverConfig, opts runner.Options) (*runner.Run, error) {
	if cfg.Resume != "" {
		path := latestSnapshot(cfg.Resume)
		if path == "" {
			return nil, fmt.Errorf("no snapshot found in %s", cfg.Resume)
		}
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		return env.Resume(ctx, snap, opts)
	}
	text, err := puzzle.ReadInput(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	notes, err := keepaway.Parse(text)
	if err != nil {
		return nil, err
	}
	return env.Start(ctx, notes, opts)
}

func bootstrap(r *runner.Run, mode keepaway.Mode, tune tuning.Tuning) observerproto.BootstrapResponse {
	actors := r.Sim.Actors()
	boot := observerproto.BootstrapResponse{
		RunID: r.ID,
		Mode:  mode.String(),
		Round: r.Sim.Round(),
		Params: observerproto.RunParams{
			RoundsPerSecond: tune.Observer.RoundsPerSecond,
			ReliefDivisor:   r.Sim.Config().ReliefDivisor,
			Modulus:         r.Sim.Modulus().String(),
		},
		Actors: make([]observerproto.ActorInfo, len(actors)),
	}
	for i, a := range actors {
		boot.Actors[i] = observerproto.ActorInfo{
			Index:       i,
			Rule:        a.Rule.String(),
			Test:        a.Test,
			TargetTrue:  a.IfTrue,
			TargetFalse: a.IfFalse,
		}
	}
	return boot
}

type snapshotReply struct {
	Round uint64
	Err   error
}

// stepLoop advances one round per tick until the target round, finishes the
// run, then idles until ctx is done. Snapshot requests are served from here
// so they never race with a round.
func stepLoop(ctx context.Context, r *runner.Run, rounds, perSecond int, snapReq <-chan chan snapshotReply, logger *zap.Logger) error {
	if perSecond <= 0 {
		perSecond = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(perSecond))
	defer ticker.Stop()

	target := uint64(rounds)
	finish := func() error {
		res, err := r.Finish(context.Background())
		if err != nil {
			return err
		}
		logger.Info("simulation finished", zap.Uint64("round", res.Rounds), zap.String("product", res.Product.String()))
		return nil
	}

	done := r.Sim.Round() >= target
	if done {
		if err := finish(); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			if done {
				return nil
			}
			return finish()
		case reply := <-snapReq:
			if done {
				reply <- snapshotReply{Err: errors.New("simulation finished")}
				continue
			}
			round, err := r.RequestSnapshot()
			reply <- snapshotReply{Round: round, Err: err}
		case <-ticker.C:
			if done {
				continue
			}
			r.Step()
			if r.Sim.Round() >= target {
				done = true
				if err := finish(); err != nil {
					return err
				}
			}
		}
	}
}

func newRouter(obs *observer.Server, m *metrics.Sim, snapReq chan<- chan snapshotReply) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/v1/bootstrap", obs.BootstrapHandler())
	r.Get("/v1/ws", obs.WSHandler())
	r.Post("/v1/snapshot", func(rw http.ResponseWriter, req *http.Request) {
		if !observer.IsLoopbackRemote(req.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		reply := make(chan snapshotReply, 1)
		var res snapshotReply
		select {
		case snapReq <- reply:
			select {
			case res = <-reply:
			case <-ctx.Done():
				res.Err = ctx.Err()
			}
		case <-ctx.Done():
			res.Err = ctx.Err()
		}

		rw.Header().Set("Content-Type", "application/json")
		if res.Err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": res.Err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "round": res.Round})
	})
	return r
}

// latestSnapshot returns the highest-round snapshot in runDir/snapshots.
func latestSnapshot(runDir string) string {
	dir := filepath.Join(runDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRound uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		round, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || round > bestRound {
			bestRound = round
			best = filepath.Join(dir, name)
		}
	}
	return best
}
