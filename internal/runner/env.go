package runner

import (
	"context"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"aoc2022.dev/internal/persistence/indexdb"
	"aoc2022.dev/internal/persistence/s3mirror"
)

// OpenEnv opens the index and mirror selected by the environment:
//
//	AOC_INDEX_BACKEND       sqlite (default), postgres or none
//	AOC_INDEX_PG_DSN        postgres connection string
//	AOC_MIRROR_S3_BUCKET    enables the mirror; see s3mirror.ConfigFromEnv
//	AOC_MIRROR_S3_WORKERS   upload workers (default 2)
//
// An empty dataDir disables every sink.
func OpenEnv(ctx context.Context, dataDir string, logger *zap.Logger) (Env, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	env := Env{DataDir: dataDir, Log: logger}
	if dataDir == "" {
		return env, nil
	}

	idx, err := indexdb.Open(dataDir, os.Getenv("AOC_INDEX_BACKEND"), strings.TrimSpace(os.Getenv("AOC_INDEX_PG_DSN")), logger)
	if err != nil {
		return Env{}, err
	}
	env.Index = idx
	if idx != nil {
		logger.Info("index backend", zap.String("backend", idx.Backend()))
	}

	if cfg, ok := s3mirror.ConfigFromEnv(); ok {
		client, err := s3mirror.New(ctx, cfg)
		if err != nil {
			_ = idx.Close()
			return Env{}, err
		}
		env.Mirror = s3mirror.NewMirror(client, dataDir, cfg.Prefix, s3mirror.Options{
			Workers: envInt("AOC_MIRROR_S3_WORKERS", 2),
		}, logger)
		logger.Info("s3 mirror enabled", zap.String("bucket", client.Bucket()), zap.String("prefix", cfg.Prefix))
	}
	return env, nil
}

// Close drains the mirror and closes the index.
func (e Env) Close() error {
	e.Mirror.Close()
	return e.Index.Close()
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
