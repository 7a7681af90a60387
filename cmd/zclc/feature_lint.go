//go:build !no_lint

package main

import (
	"log/slog"

	"zclc/internal/builder"
	"zclc/internal/lint"
)

// initLinter returns a Lua linter over lint.scripts_dir, or nil when no
// scripts dir is configured.
func initLinter(cfg *Config, logger *slog.Logger) builder.Linter {
	if cfg.Lint.ScriptsDir == "" {
		return nil
	}
	timeout, _ := parseDuration(cfg.Lint.Timeout)
	mgr := lint.NewManager(cfg.Lint.ScriptsDir, logger)
	scripts, err := mgr.List()
	if err != nil {
		logger.Warn("list lint scripts", "dir", cfg.Lint.ScriptsDir, "err", err)
	}
	logger.Info("lint enabled", "dir", cfg.Lint.ScriptsDir, "scripts", len(scripts))
	return lint.NewLinter(mgr, timeout, logger)
}
