package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/studiobook/libs/config"
	"github.com/md-rashed-zaman/studiobook/libs/db"
	"github.com/md-rashed-zaman/studiobook/libs/grpcx"
	"github.com/md-rashed-zaman/studiobook/libs/httpx"
	"github.com/md-rashed-zaman/studiobook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/studiobook/libs/otel"
	"github.com/md-rashed-zaman/studiobook/libs/runtime"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/availability"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/bookings"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/handlers"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/reconcile"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/reservations"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "reservation-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
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

	loc, err := config.Location("RESERVATION_TIMEZONE", availability.DefaultTimezone)
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	var checkout bookings.Checkout
	var stripeCheckout *payments.StripeCheckout
	if key := config.String("STRIPE_SECRET_KEY", ""); key != "" {
		sc, err := payments.NewStripeCheckout(key,
			config.String("CHECKOUT_SUCCESS_URL", ""),
			config.String("CHECKOUT_CANCEL_URL", ""),
		)
		if err != nil {
			panic(err)
		}
		checkout = sc
		stripeCheckout = sc
	} else {
		logger.Warn("stripe checkout disabled (STRIPE_SECRET_KEY missing); priced reservations cannot be booked")
	}
	verifier := payments.NewWebhookVerifier(
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		time.Duration(config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300))*time.Second,
	)

	resSvc := reservations.NewService(repo, availability.NewGenerator(loc), logger)
	bookSvc := bookings.NewService(repo, checkout, loc, logger)

	if stripeCheckout != nil && config.Bool("PAYMENT_RECONCILE_ENABLED", true) {
		reconciler := reconcile.NewPaymentReconciler(repo, stripeCheckout, bookSvc, logger, reconcile.Config{
			Interval:        time.Duration(config.Int("PAYMENT_RECONCILE_INTERVAL_SECONDS", 300)) * time.Second,
			StaleAfter:      time.Duration(config.Int("PAYMENT_RECONCILE_STALE_MINUTES", 15)) * time.Minute,
			BatchSize:       config.Int("PAYMENT_RECONCILE_BATCH_SIZE", 50),
			AdvisoryLockKey: int64(config.Int("PAYMENT_RECONCILE_LOCK_KEY", 7310001)),
		})
		go reconciler.Run(ctx)
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	perMinute := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	var limiter httpx.Limiter = httpx.NewMemoryLimiter(perMinute, time.Minute)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		limiter = httpx.NewRedisLimiter(rdb, perMinute, time.Minute, "rl:bookings")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	h := handlers.New(resSvc, bookSvc, verifier, repo, logger)
	h.Register(mux, httpx.RateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "reservations")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	grpcSrv, err := startGrpcServer(ctx, logger, service, grpcPort, checks)
	if err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	stoppers := map[string]runtime.Stopper{"http": srv}
	if grpcSrv != nil {
		stoppers["grpc"] = grpcx.GracefulStopper{Server: grpcSrv}
	}
	runtime.ShutdownAll(logger, 10*time.Second, stoppers, "http", "grpc")
}
