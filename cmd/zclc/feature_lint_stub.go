//go:build no_lint

package main

import (
	"log/slog"

	"zclc/internal/builder"
)

func initLinter(_ *Config, _ *slog.Logger) builder.Linter {
	return nil
}
