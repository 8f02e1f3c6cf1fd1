// Command schedulerd runs the ground station scheduling engine behind an
// HTTP JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/groundstation-scheduler/core/availability"
	"github.com/signalsfoundry/groundstation-scheduler/core/booking"
	"github.com/signalsfoundry/groundstation-scheduler/core/compat"
	"github.com/signalsfoundry/groundstation-scheduler/core/orbit"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/internal/api"
	"github.com/signalsfoundry/groundstation-scheduler/internal/clock"
	"github.com/signalsfoundry/groundstation-scheduler/internal/config"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/internal/observability"
	"github.com/signalsfoundry/groundstation-scheduler/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	// Optional .env for local development; ignore a missing file.
	_ = godotenv.Load()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error(ctx, "failed to load configuration", logging.String("path", *configPath), logging.Err(err))
			os.Exit(1)
		}
		cfg = loaded
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	httpMetrics, err := observability.NewHTTPCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise HTTP metrics", logging.Err(err))
		os.Exit(1)
	}
	engineMetrics, err := observability.NewEngineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise engine metrics", logging.Err(err))
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Database.Storage())
	if err != nil {
		log.Error(ctx, "failed to open database", logging.String("driver", cfg.Database.Driver), logging.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	ruleEngine := rules.NewEngine(log)
	avail := availability.NewManager(store, ruleEngine, log,
		availability.WithMinDuration(cfg.Engine.MinSlotDuration),
	)
	index := compat.NewIndex(store, log)
	factory := orbit.NewFactory(log, orbit.WithStep(cfg.Engine.SampleStep))

	engine := booking.NewManager(store, ruleEngine, avail, index, factory, clock.System(), log,
		booking.WithWindow(cfg.Engine.Window),
		booking.WithMinPassDuration(cfg.Engine.MinPassDuration),
		booking.WithRecorder(engineMetrics),
	)

	router := api.NewRouter(api.Config{
		Engine:          engine,
		Availability:    avail,
		Store:           store,
		Log:             log,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		Middleware:      []func(http.Handler) http.Handler{httpMetrics.Middleware},
		MetricsHandler:  httpMetrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go propagateLoop(stopCtx, engine, cfg.Engine.PropagateInterval, log)

	go func() {
		log.Info(ctx, "starting scheduler API",
			logging.String("addr", cfg.Server.ListenAddr),
			logging.String("database", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server exited", logging.Err(err))
			stop()
		}
	}()

	<-stopCtx.Done()

	log.Info(ctx, "shutting down scheduler")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "HTTP shutdown incomplete", logging.Err(err))
	}
}

// propagateLoop rolls the simulation window forward on a fixed interval so
// availability keeps covering the near future without external triggers.
func propagateLoop(ctx context.Context, engine *booking.Manager, every time.Duration, log logging.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.PropagateWindow(ctx); err != nil {
				log.Warn(ctx, "window propagation failed", logging.Err(err))
			}
		}
	}
}
