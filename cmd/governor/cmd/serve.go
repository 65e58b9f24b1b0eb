package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	httpapi "github.com/siva-ai/governor/internal/adapter/inbound/http"
	"github.com/siva-ai/governor/internal/adapter/outbound/cache"
	"github.com/siva-ai/governor/internal/adapter/outbound/sqlite"
	"github.com/siva-ai/governor/internal/config"
	"github.com/siva-ai/governor/internal/domain/auth"
	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/territory"
	"github.com/siva-ai/governor/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the governance API server",
	Long: `Start the governor HTTP API server.

The server exposes persona and territory resolution, capability
authorization, deterministic model routing, envelope sealing and
verification, replay, and the runtime gate under /api/v1.

Examples:
  # Start with config file settings
  governor serve

  # Start with a specific config file
  governor --config /path/to/config.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, trace export to stdout)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

// run wires storage, services, and the HTTP transport, then blocks until
// shutdown.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()
	logger.Info("storage opened", "path", cfg.Storage.Path)

	personaStore := sqlite.NewPersonaStore(store)
	envelopeStore := sqlite.NewEnvelopeStore(store)
	routingStore := sqlite.NewRoutingStore(store)
	replayStore := sqlite.NewReplayStore(store)
	denialStore := sqlite.NewDenialStore(store)
	violationStore := sqlite.NewViolationStore(store)

	// Policies read straight through to storage; only the catalog stores
	// sit behind the bounded-TTL cache.
	var territoryStore territory.Store = sqlite.NewTerritoryStore(store)
	var modelStore model.Store = sqlite.NewModelStore(store)
	if cfg.Cache.Enabled {
		territoryStore = cache.NewTerritoryStore(territoryStore, cfg.Cache.TTL, cfg.Cache.MaxEntries)
		modelStore = cache.NewModelStore(modelStore, cfg.Cache.TTL, cfg.Cache.MaxEntries)
		logger.Info("catalog cache enabled",
			"ttl", cfg.Cache.TTL, "propagation_bound", cfg.Cache.PropagationBound)
	}

	resolver := service.NewResolverService(personaStore, territoryStore, logger)
	authorizer := service.NewAuthorizerService(denialStore, logger)
	router := service.NewRouterService(modelStore, routingStore, logger)
	envelopes := service.NewEnvelopeService(envelopeStore, logger, cfg.Storage.Timeout)
	replays := service.NewReplayService(envelopes, replayStore, logger)
	gatekeeper := service.NewGateService(envelopes, violationStore, logger)
	pipeline := service.NewPipelineService(resolver, authorizer, router, envelopes, logger, cfg.Envelope.DefaultTTL)
	auditQuery := service.NewAuditQueryService(denialStore, violationStore, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := httpapi.NewMetrics(registry)

	keys := make([]auth.Key, 0, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		keys = append(keys, auth.Key{Name: k.Name, Hash: k.KeyHash})
	}
	keyring := auth.NewKeyring(keys)
	if keyring.Empty() {
		logger.Warn("no API keys configured, API is open")
	}

	tracer, shutdownTracing, err := setupTracing(cfg.DevMode)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer shutdownTracing()

	handler := httpapi.NewHandler(
		resolver, authorizer, router, envelopes, replays, gatekeeper,
		pipeline, auditQuery, metrics, logger,
	)
	server := httpapi.NewServer(httpapi.ServerOptions{
		Addr:     cfg.Server.HTTPAddr,
		Handler:  handler,
		Health:   httpapi.NewHealthHandler(store),
		Metrics:  metrics,
		Registry: registry,
		Keyring:  keyring,
		Tracer:   tracer,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("governor stopped")
	return nil
}

// setupTracing configures the tracer provider. Spans export to stdout in
// dev mode only; otherwise tracing stays inert.
func setupTracing(dev bool) (trace.Tracer, func(), error) {
	if !dev {
		return nil, func() {}, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
	return tp.Tracer("governor"), shutdown, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
