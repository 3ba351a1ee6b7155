package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/isastore/backend/internal/app"
	"github.com/isastore/backend/internal/config"
	"github.com/isastore/backend/internal/notify"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/resilience"
)

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs.MustRegisterDomainMetrics("isa", nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		return err
	}
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.TracingEnabled,
		ServiceName:   cfg.ServiceName + "-worker",
		Endpoint:      cfg.OTLPEndpoint,
		SamplingRatio: cfg.TraceSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	redisClient, err := app.NewRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	senders := []notify.Sender{notify.LogSender{Logger: logger}}
	if cfg.NotifyWebhookURL != "" {
		breaker := resilience.NewBreaker("notify-webhook", 5, 0.5, 30*time.Second)
		breaker.Logger = logger
		senders = append(senders, &notify.WebhookSender{
			URL:       cfg.NotifyWebhookURL,
			Secret:    cfg.NotifySecret,
			Client:    notify.HTTPClient(5 * time.Second),
			Replay:    notify.RedisReplayProtector{Client: redisClient},
			ReplayTTL: cfg.NotifyReplayTTL,
			Breaker:   breaker,
		})
		logger.Info().Str("url", cfg.NotifyWebhookURL).Msg("webhook sender enabled")
	}

	labels := notify.DefaultLabels
	if cfg.MessagePrefix != "" {
		labels.Prefix = cfg.MessagePrefix
	}
	processor := &notify.Processor{
		Senders:        senders,
		Labels:         labels,
		CurrencySymbol: cfg.CurrencySymbol,
		WhatsAppPhone:  cfg.WhatsAppPhone,
		Logger:         logger,
	}
	mux := asynq.NewServeMux()
	processor.Register(mux)

	conn, err := app.AsynqRedis(cfg)
	if err != nil {
		return err
	}
	srv := app.NewTaskServer(conn, cfg, logger)
	if err := srv.Start(mux); err != nil {
		return err
	}
	logger.Info().Str("queue", cfg.AsynqQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	metricsSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}
