package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/isastore/backend/internal/analytics"
	"github.com/isastore/backend/internal/app"
	"github.com/isastore/backend/internal/audit"
	"github.com/isastore/backend/internal/auth"
	"github.com/isastore/backend/internal/cart"
	"github.com/isastore/backend/internal/catalog"
	"github.com/isastore/backend/internal/checkout"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/config"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/discount"
	"github.com/isastore/backend/internal/events"
	"github.com/isastore/backend/internal/health"
	"github.com/isastore/backend/internal/lock"
	"github.com/isastore/backend/internal/notify"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/order"
	"github.com/isastore/backend/internal/queue"
	"github.com/isastore/backend/internal/ratelimit"
	"github.com/isastore/backend/internal/security"
	"github.com/isastore/backend/internal/shipping"
)

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("service", cfg.ServiceName).Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs.MustRegisterDomainMetrics("isa", nil)
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.TracingEnabled,
		ServiceName:   cfg.ServiceName,
		Endpoint:      cfg.OTLPEndpoint,
		SamplingRatio: cfg.TraceSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := app.NewPool(startCtx, cfg, "isa-store-api")
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := app.NewRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(startCtx).Err(); err != nil {
		return err
	}

	asynqConn, err := app.AsynqRedis(cfg)
	if err != nil {
		return err
	}
	taskClient := asynq.NewClient(asynqConn)
	defer func() { _ = taskClient.Close() }()
	inspector := asynq.NewInspector(asynqConn)
	defer func() { _ = inspector.Close() }()

	queries := db.New(pool)

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   catalog.NewCache(redisClient, cfg.ProductCacheTTL),
	})
	if err != nil {
		return err
	}
	tiers, err := discount.NewService(discount.Config{
		Queries: queries,
		Redis:   redisClient,
		Logger:  logger.With().Str("component", "discount").Logger(),
	})
	if err != nil {
		return err
	}
	estimator := shipping.NewEstimator(shipping.Rates{FirstKg: cfg.FlatCarrierBase, ExtraKg: cfg.FlatCarrierPerKg}, cfg.PickupKeywords)

	bus := &events.Bus{
		Store:     queries,
		Scheduler: notify.Scheduler{Client: taskClient, Queue: cfg.AsynqQueue},
	}

	cartSvc := &cart.Service{
		Store:          &cart.RedisStore{R: redisClient, TTL: cfg.CartTTL},
		Products:       catalogSvc,
		Tiers:          tiers,
		DefaultWeight:  cfg.DefaultLineWeightKg,
		CurrencySymbol: cfg.CurrencySymbol,
	}

	labels := notify.DefaultLabels
	if cfg.MessagePrefix != "" {
		labels.Prefix = cfg.MessagePrefix
	}
	checkoutSvc := checkout.NewService(checkout.Service{
		Carts:          cartSvc,
		Stock:          catalogSvc,
		Tiers:          tiers,
		Estimator:      estimator,
		DefaultWeight:  cfg.DefaultLineWeightKg,
		Orders:         &order.Store{DB: pool, Q: queries},
		Events:         bus,
		Lock:           lock.Locker{R: redisClient},
		LockTTL:        cfg.CheckoutLockTTL,
		CurrencySymbol: cfg.CurrencySymbol,
		WhatsAppPhone:  cfg.WhatsAppPhone,
		Labels:         labels,
	})

	orderSvc := &order.Service{Q: queries, Events: bus}
	analyticsSvc := &analytics.Service{Q: queries, R: redisClient, TTL: cfg.AnalyticsCacheTTL}
	auditSvc := &audit.Service{Store: queries, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSampling}

	verifier, err := auth.NewVerifier(auth.Config{
		JWTSecret:  cfg.AdminJWTSecret,
		APIKeyHash: cfg.AdminAPIKeyHash,
		TokenTTL:   cfg.AdminTokenTTL,
	})
	if err != nil {
		return err
	}

	checkoutLimiter, err := ratelimit.New(redisClient, cfg.CheckoutRateLimit, "ratelimit:checkout")
	if err != nil {
		return err
	}

	h := handlers{
		catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc, Tiers: tiers, CurrencySymbol: cfg.CurrencySymbol}),
		discounts: &discount.Handler{Svc: tiers},
		carts:     &cart.Handler{Svc: cartSvc},
		checkout:  &checkout.Handler{Svc: checkoutSvc},
		shipping:  &shipping.Handler{Estimator: estimator, CurrencySymbol: cfg.CurrencySymbol},
		orders:    &order.AdminHandler{Svc: orderSvc},
		analytics: &analytics.Handler{Svc: analyticsSvc},
		audit:     audit.Handler{Store: queries},
		queue:     &queue.AdminHandler{Inspector: inspector, Queue: cfg.AsynqQueue},
		health:    health.Handler{Checks: app.HealthChecks(pool, redisClient)},
	}
	r := newRouter(cfg, logger, h, routerDeps{
		idem:     common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		limiter:  ratelimit.Handler{Limiter: checkoutLimiter, OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }},
		admin:    auth.Middleware{Verifier: verifier},
		auditSvc: auditSvc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		health.SetReady(true)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

type handlers struct {
	catalog   *catalog.Handler
	discounts *discount.Handler
	carts     *cart.Handler
	checkout  *checkout.Handler
	shipping  *shipping.Handler
	orders    *order.AdminHandler
	analytics *analytics.Handler
	audit     audit.Handler
	queue     *queue.AdminHandler
	health    health.Handler
}

type routerDeps struct {
	idem     common.Idem
	limiter  ratelimit.Handler
	admin    auth.Middleware
	auditSvc *audit.Service
}

func newRouter(cfg *config.Config, logger zerolog.Logger, h handlers, d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics("isa", nil, nil)}.Middleware)
	if cfg.TracingEnabled {
		r.Use(obs.Tracing(cfg.ServiceName))
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{HSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", h.health.Live)
	r.Get("/health/ready", h.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		if cfg.RequestTimeout > 0 {
			v.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		v.Get("/products", h.catalog.Products)
		v.Get("/products/{productID}", h.catalog.Product)
		v.Post("/products/{productID}/quote", h.catalog.Quote)
		v.Get("/discount-tiers", h.discounts.Active)
		v.Post("/pricing/quote", h.checkout.Quote)
		v.Post("/shipping/quote", h.shipping.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", h.carts.Create)
			c.Route("/{cartID}", func(one chi.Router) {
				one.Get("/", h.carts.Get)
				one.Delete("/", h.carts.Clear)
				one.Post("/items", h.carts.AddItem)
				one.Patch("/items/{lineID}", h.carts.UpdateItem)
				one.Delete("/items/{lineID}", h.carts.RemoveItem)
			})
		})

		v.With(d.limiter.Middleware, d.idem.Middleware).Post("/checkout", h.checkout.Checkout)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(d.admin.RequireAdmin)

			admin.Get("/discount-tiers", h.discounts.List)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "discount_tier.create", ResourceType: "discount_tier"})).
				Post("/discount-tiers", h.discounts.Create)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "discount_tier.update", ResourceType: "discount_tier", ResourceIDParam: "tierID"})).
				Put("/discount-tiers/{tierID}", h.discounts.Update)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "discount_tier.delete", ResourceType: "discount_tier", ResourceIDParam: "tierID"})).
				Delete("/discount-tiers/{tierID}", h.discounts.Delete)

			admin.Get("/orders", h.orders.List)
			admin.Get("/orders/{orderID}", h.orders.Get)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "order.status", ResourceType: "order", ResourceIDParam: "orderID"})).
				Patch("/orders/{orderID}/status", h.orders.PatchStatus)

			admin.Get("/analytics/sales", h.analytics.Sales)
			admin.Get("/audit-logs", h.audit.List)

			admin.Get("/notifications/queue", h.queue.Stats)
			admin.Get("/notifications/dead", h.queue.ListDead)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "notification.replay_all", ResourceType: "notification"})).
				Post("/notifications/dead/replay", h.queue.ReplayAll)
			admin.With(d.auditSvc.Middleware(audit.Route{Action: "notification.replay", ResourceType: "notification", ResourceIDParam: "taskID"})).
				Post("/notifications/dead/{taskID}/replay", h.queue.Replay)
		})
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
