// Package app wires the cart engine, storage, catalog, coupon registry, and
// HTTP surface together. Run is the single composition root: it owns the one
// engine instance per process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growshop/growcart/internal/domain/cart"
	"github.com/growshop/growcart/internal/domain/coupon"
	"github.com/growshop/growcart/internal/domain/product"
	"github.com/growshop/growcart/internal/handler"
	filestore "github.com/growshop/growcart/internal/storage/file"
	"github.com/growshop/growcart/internal/storage/memory"
	"github.com/growshop/growcart/pkg/eventbus"
	"github.com/growshop/growcart/pkg/health"
	"github.com/growshop/growcart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown.
func Run(ctx context.Context, lg *zap.Logger, _ *sdkapp.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Snapshot storage.
	storage, pinger, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	// Cart engine, reconstructed from the persisted snapshot.
	engineCfg, err := cfg.CartEngineConfig()
	if err != nil {
		return err
	}
	bus := eventbus.New(lg.Named("bus"))
	engine, err := cart.New(ctx, engineCfg, storage,
		cart.WithLogger(lg.Named("cart")),
		cart.WithPublisher(bus),
	)
	if err != nil {
		return errors.Wrap(err, "create cart engine")
	}

	// Surface persistence warnings so operators see them even without a UI
	// subscriber.
	bus.Subscribe(string(cart.EventPersistenceWarning), func(_ string, payload any) {
		if ev, ok := payload.(cart.Event); ok {
			lg.Warn("cart may not survive a restart", zap.Error(ev.Err))
		}
	})

	// Product catalog.
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	lg.Info("Catalog loaded", zap.Int("products", catalog.Len()))

	// Promo code registry.
	registry := coupon.NewRegistry(coupon.DefaultRules()...)
	if len(cfg.Coupons.CodeFiles) > 0 {
		bulkRule := coupon.Rule{
			Code:        "BULK",
			Type:        cart.DiscountPercentage,
			Value:       decimal.NewFromFloat(0.10),
			Description: "Valid promo code: 10% off",
		}
		if err := registry.LoadCodeList(ctx, bulkRule, cfg.Coupons.CodeFiles...); err != nil {
			return errors.Wrap(err, "load coupon code lists")
		}
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	if pinger != nil {
		healthSvc.AddReadinessCheck("storage", 5*time.Second, pinger.Ping)
	}
	healthSvc.SetReady(true)

	// HTTP surface.
	h := handler.New(engine, catalog, registry)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

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

// pingable is implemented by storage backends that can verify writability.
type pingable interface {
	Ping(ctx context.Context) error
}

func buildStorage(cfg *Config) (cart.Storage, pingable, error) {
	switch cfg.Storage.Backend {
	case "file":
		var opts []filestore.Option
		if cfg.Storage.Compress {
			opts = append(opts, filestore.WithCompression())
		}
		store, err := filestore.New(cfg.Storage.Path, opts...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create file storage")
		}
		return store, store, nil
	case "memory":
		return memory.New(), nil, nil
	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildCatalog(cfg *Config) (*product.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return product.DefaultCatalog(), nil
	}
	catalog, err := product.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return catalog, nil
}
