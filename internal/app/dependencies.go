// Package app builds the infrastructure clients shared by the api and worker
// binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/isastore/backend/internal/config"
	"github.com/isastore/backend/internal/health"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/resilience"
)

// NewPool opens a traced pgx pool and verifies connectivity.
func NewPool(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis builds a Redis client with otel tracing and metrics. Instrumentation
// failures are logged, not fatal.
func NewRedis(cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	return client, nil
}

// AsynqRedis converts the Redis URL into asynq connection options.
func AsynqRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}
	return opt, nil
}

// NewTaskServer configures the asynq server that runs notification tasks on
// the configured queue.
func NewTaskServer(conn asynq.RedisConnOpt, cfg *config.Config, logger zerolog.Logger) *asynq.Server {
	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(conn, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queue: 1},
		ShutdownTimeout: 10 * time.Second,
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return resilience.Backoff(5*time.Second, 10*time.Minute, n+1, 0.2)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
	})
}

// HealthChecks returns the readiness probes for the shared backends.
func HealthChecks(pool *pgxpool.Pool, rdb *redis.Client) []health.Check {
	checks := make([]health.Check, 0, 2)
	if pool != nil {
		checks = append(checks, health.Check{Name: "postgres", Timeout: 2 * time.Second, Probe: pool.Ping})
	}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Timeout: 2 * time.Second, Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}
