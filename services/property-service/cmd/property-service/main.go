package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmarkovic/hostwise/libs/config"
	"github.com/dmarkovic/hostwise/libs/db"
	"github.com/dmarkovic/hostwise/libs/httpx"
	"github.com/dmarkovic/hostwise/libs/kafkax"
	otelx "github.com/dmarkovic/hostwise/libs/otel"
	"github.com/dmarkovic/hostwise/libs/runtime"
	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/consumer"
	"github.com/dmarkovic/hostwise/services/property-service/internal/handlers"
	"github.com/dmarkovic/hostwise/services/property-service/internal/inbox"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/outbox"
	"github.com/dmarkovic/hostwise/services/property-service/internal/rates"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
	"github.com/dmarkovic/hostwise/services/property-service/internal/tenant"
)

func main() {
	service := config.String("SERVICE_NAME", "property-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	bookingRepo := storage.NewBookingRepository(pool)
	movementRepo := storage.NewMovementRepository(pool)
	guideRepo := storage.NewGuideRepository(pool)
	ratesRepo := storage.NewRatesRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	resolver := calendar.NewResolver(bookingRepo)

	fallbackRates := model.TenantRates{
		SalesCommissionRate:      config.Float("DEFAULT_SALES_COMMISSION_RATE", 0),
		CollectionCommissionRate: config.Float("DEFAULT_COLLECTION_COMMISSION_RATE", 0),
		TaxRate:                  config.Float("DEFAULT_TAX_RATE", 0),
		ApplyTax:                 config.Bool("DEFAULT_APPLY_TAX", false),
	}
	ratesProvider, err := rates.NewPlatformRatesProvider(logger, ratesRepo, fallbackRates, config.String("PLATFORM_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("rates provider init failed", "err", err)
		ratesProvider = rates.NewStoreProvider(ratesRepo, fallbackRates)
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	if topic := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPIC", consumer.TopicTenantRatesUpdated)); topic != "" {
		ratesConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "property-service"),
			Topic:   topic,
		}, consumer.TenantRatesHandler(logger, ratesRepo))
		go ratesConsumer.Run(ctx)
	}

	calendarHandler := handlers.NewCalendarHandler(resolver, logger)
	bookingHandler := handlers.NewBookingHandler(bookingRepo, movementRepo, outboxRepo, resolver, ratesProvider, logger)
	movementHandler := handlers.NewMovementHandler(movementRepo, logger)
	guideHandler := handlers.NewGuideHandler(guideRepo, logger)
	reportHandler := handlers.NewReportHandler(movementRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	protected := tenant.Middleware(config.String("JWT_SECRET", ""))
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}
	handle("/api/calendar/check", calendarHandler.Check)
	handle("/api/calendar/validate", calendarHandler.Validate)
	handle("/api/calendar/availability", calendarHandler.Availability)
	handle("/api/calendar/next-available", calendarHandler.NextAvailable)
	handle("/api/bookings", routeByMethod(bookingHandler.Create, bookingHandler.List))
	handle("/api/bookings/reschedule", bookingHandler.Reschedule)
	handle("/api/bookings/cancel", bookingHandler.Cancel)
	handle("/api/movements", routeByMethod(movementHandler.Create, movementHandler.List))
	handle("/api/reports/summary", reportHandler.Summary)
	handle("/api/guides", guideHandler.Upsert)
	// Guest-facing, unauthenticated.
	mux.HandleFunc("/api/guides/view", guideHandler.View)

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	requestTimeout := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "property")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func routeByMethod(post, get http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		default:
			post(w, r)
		}
	}
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
