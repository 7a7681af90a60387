//go:build no_lint

package lint

import (
	"context"
	"log/slog"
	"time"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// Manager is a no-op stub when linting is disabled.
type Manager struct{}

// NewManager returns an empty manager when linting is disabled.
func NewManager(_ string, _ *slog.Logger) *Manager { return &Manager{} }

// List returns nil.
func (m *Manager) List() ([]*Script, error) { return nil, nil }

// Linter is a no-op stub when linting is disabled.
type Linter struct{}

// NewLinter returns a no-op linter when linting is disabled.
func NewLinter(_ *Manager, _ time.Duration, _ *slog.Logger) *Linter { return &Linter{} }

// Lint reports nothing.
func (l *Linter) Lint(_ context.Context, _ *zcl.Catalog) (spec.Diagnostics, error) { return nil, nil }
