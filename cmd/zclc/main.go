package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zclc/internal/builder"
	"zclc/internal/spec"
	"zclc/internal/store"
	"zclc/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const usage = "usage: zclc [config.yaml] [build|serve]"

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath, mode, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zclc starting", "version", version, "mode", mode)

	var st store.Store
	if cfg.Output.Store != "" {
		db, err := store.NewBoltStore(cfg.Output.Store)
		if err != nil {
			logger.Error("open store", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		st = db
	}

	// validate has checked the durations.
	debounce, _ := parseDuration(cfg.Watch.Debounce)
	b := builder.New(builder.Config{
		SpecDir:         cfg.SpecDir,
		IncludeStandard: cfg.includeStandard(),
		GoDir:           cfg.Output.GoDir,
		GoPackage:       cfg.Output.GoPackage,
		TablePath:       cfg.Output.Table,
		JSONPath:        cfg.Output.JSON,
		KeepBuilds:      cfg.Output.KeepBuilds,
		Debounce:        debounce,
	}, st, initLinter(cfg, logger), builder.NewEventBus(logger), logger)

	switch mode {
	case "serve":
		err = serve(b, st, cfg, logger)
	default:
		err = buildOnce(b, logger)
	}
	if err != nil {
		logger.Error(mode+" failed", "err", err)
		if st != nil {
			st.Close()
		}
		os.Exit(1)
	}
	logger.Info("goodbye")
}

func parseArgs(args []string) (cfgPath, mode string, err error) {
	cfgPath, mode = "zclc.yaml", "build"
	switch len(args) {
	case 0:
	case 1:
		if args[0] == "build" || args[0] == "serve" {
			mode = args[0]
		} else {
			cfgPath = args[0]
		}
	case 2:
		cfgPath, mode = args[0], args[1]
	default:
		return "", "", errors.New("too many arguments")
	}
	if mode != "build" && mode != "serve" {
		return "", "", fmt.Errorf("unknown mode %q", mode)
	}
	return cfgPath, mode, nil
}

// buildOnce compiles the configured sources and writes the outputs.
func buildOnce(b *builder.Builder, logger *slog.Logger) error {
	res, err := b.Build(context.Background())
	for _, d := range res.Diagnostics {
		if d.Severity == spec.SeverityFatal.String() {
			logger.Error("diagnostic", "file", d.File, "line", d.Line, "code", d.Code,
				"cluster", d.Cluster, "attribute", d.Attribute, "msg", d.Message)
		}
	}
	if err != nil {
		return err
	}
	for _, out := range res.Outputs {
		logger.Info("wrote", "path", out)
	}
	return nil
}

// serve restores the stored catalog, builds, and then keeps the catalog
// current while serving it over HTTP and MQTT until SIGINT or SIGTERM.
func serve(b *builder.Builder, st store.Store, cfg *Config, logger *slog.Logger) error {
	if err := b.Restore(); err != nil {
		logger.Warn("restore catalog", "err", err)
	}

	webOpts := []web.ServerOption{web.WithVersion(version), web.WithStore(st)}
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webServer := web.NewServer(b, logger, webOpts...)

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(b, cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := b.Build(ctx); err != nil && b.Current() == nil {
		logger.Warn("initial build failed, serving an empty catalog", "err", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
			cancel()
		}
	}()

	watchDone := make(chan error, 1)
	go func() { watchDone <- b.Watch(ctx) }()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	if err := <-watchDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
