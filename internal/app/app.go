// Package app wires the application together and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storelane/coupon-gate/internal/checkout"
	"github.com/storelane/coupon-gate/internal/customer"
	"github.com/storelane/coupon-gate/internal/handler"
	"github.com/storelane/coupon-gate/internal/repository"
	"github.com/storelane/coupon-gate/internal/restriction"
	"github.com/storelane/coupon-gate/internal/session"
	"github.com/storelane/coupon-gate/pkg/health"
	"github.com/storelane/coupon-gate/pkg/httpmiddleware"
)

// noticeLogger is the default notification sink: blocking shopper notices go
// to the log in addition to the HTTP response built from the checkout result.
type noticeLogger struct{}

func (noticeLogger) Notice(ctx context.Context, message string) {
	zctx.From(ctx).Info("checkout notice", zap.String("message", message))
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis client for cart sessions.
	rdb, err := session.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer rdb.Close()

	// Health checks.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Stores.
	couponRepo := repository.NewCouponRepository(pool)
	if err := couponRepo.LoadCodeFilter(ctx); err != nil {
		return errors.Wrap(err, "load coupon code filter")
	}
	if cfg.CouponReload > 0 {
		// Codes added after startup stay invisible to the negative-lookup
		// filter until a rebuild picks them up.
		go func() {
			ticker := time.NewTicker(cfg.CouponReload)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := couponRepo.LoadCodeFilter(ctx); err != nil {
						lg.Warn("Rebuild coupon code filter", zap.Error(err))
					}
				}
			}
		}()
	}
	customerRepo := repository.NewCustomerRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	cartStore := session.NewStore(rdb, cfg.CartTTL)

	// Domain services.
	catalog := restriction.NewCatalog()
	catalog.SetLocale(cfg.Locale)
	resolver := customer.NewResolver(customerRepo)
	checkoutSvc, err := checkout.NewService(checkout.Config{
		Catalog:        catalog,
		Notifier:       noticeLogger{},
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	}, couponRepo, cartStore, orderRepo, resolver)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", handler.NewHandler(checkoutSvc).Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
