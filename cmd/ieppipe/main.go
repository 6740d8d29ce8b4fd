// Entry point for the ieppipe service: IEP document ingest over HTTP,
// with an optional MCP stdio mode for agent integrations.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/myiephero/ieppipe/dbopen"
	"github.com/myiephero/ieppipe/docpipe"
	"github.com/myiephero/ieppipe/ingester"
	"github.com/myiephero/ieppipe/observability"
	"github.com/myiephero/ieppipe/shield"
)

const serviceName = "ieppipe"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// MCP stdio mode: serve the pipeline tools over stdin/stdout and exit.
	// No databases, no HTTP.
	if env("MCP_TRANSPORT", "") == "stdio" {
		if err := runMCP(ctx, cfg); err != nil {
			slog.Error("mcp server", "error", err)
			os.Exit(1)
		}
		return
	}

	// Ingest DB.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(ingester.Schema))
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := ingester.NewStore(db)

	// Observability DB is kept separate so telemetry writes never contend
	// with the ingest path.
	obsDB, err := dbopen.Open(cfg.ObservabilityDBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
	if err != nil {
		slog.Error("open observability db", "error", err)
		os.Exit(1)
	}
	defer obsDB.Close()

	events := observability.NewEventLogger(obsDB)
	metrics := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
	defer metrics.Close()

	heartbeat := observability.NewHeartbeatWriter(obsDB, serviceName, 15*time.Second)
	heartbeat.Start(ctx)
	defer heartbeat.Stop()

	ing := ingester.New(cfg, store,
		ingester.WithEventLogger(events),
		ingester.WithMetrics(metrics),
		ingester.WithLogger(logger))
	api := ingester.NewAPI(cfg, ing, store, obsDB)

	// Router.
	r := chi.NewRouter()
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(cfg.MaxFileBytes() + 1<<20)) // multipart overhead headroom
	r.Use(shield.TraceID)
	r.Use(shield.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware)
	r.Mount("/", api.Routes())

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "listen", cfg.Listen, "anonymous", cfg.JWTSecret == "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// loadConfig reads the YAML config when a path is given, otherwise starts
// from defaults. Environment variables override either way.
func loadConfig(path string) (*ingester.Config, error) {
	cfg := ingester.DefaultConfig()
	if path != "" {
		loaded, err := ingester.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Listen = env("LISTEN", cfg.Listen)
	cfg.DBPath = env("DB_PATH", cfg.DBPath)
	cfg.ObservabilityDBPath = env("OBSERVABILITY_DB_PATH", cfg.ObservabilityDBPath)
	cfg.JWTSecret = env("JWT_SECRET", cfg.JWTSecret)

	return cfg, cfg.Validate()
}

// runMCP serves the pipeline tools over stdio until the context ends.
func runMCP(ctx context.Context, cfg *ingester.Config) error {
	pipe := docpipe.New(docpipe.Config{
		MaxFileSize:   cfg.MaxFileBytes(),
		TokenBudget:   cfg.TokenBudget,
		UsePDFLibrary: cfg.UsePDFLibrary,
	})

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    serviceName,
		Version: "1.0.0",
	}, nil)
	pipe.RegisterMCP(srv)

	slog.Info("mcp server starting", "transport", "stdio")
	return srv.Run(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout})
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
