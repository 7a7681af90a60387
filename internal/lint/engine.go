//go:build !no_lint

package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

const defaultTimeout = 5 * time.Second

// Linter runs every enabled script of a Manager against a catalog.
type Linter struct {
	manager *Manager
	timeout time.Duration
	logger  *slog.Logger
}

// NewLinter creates a linter. A zero timeout selects the default per-script
// limit.
func NewLinter(mgr *Manager, timeout time.Duration, logger *slog.Logger) *Linter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Linter{
		manager: mgr,
		timeout: timeout,
		logger:  logger.With("component", "lint"),
	}
}

// Lint runs the scripts in ID order. Each script gets a fresh sandboxed VM.
// error-level findings and script failures are fatal diagnostics.
func (l *Linter) Lint(ctx context.Context, cat *zcl.Catalog) (spec.Diagnostics, error) {
	scripts, err := l.manager.List()
	if err != nil {
		return nil, err
	}

	var diags spec.Diagnostics
	ran := 0
	for _, s := range scripts {
		if !s.Meta.Enabled {
			continue
		}
		ran++
		diags = append(diags, l.RunScript(ctx, s, cat)...)
	}
	l.logger.Debug("lint finished", "scripts", ran, "findings", len(diags))
	return diags, nil
}

// RunScript runs one script and returns its findings.
func (l *Linter) RunScript(ctx context.Context, s *Script, cat *zcl.Catalog) spec.Diagnostics {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	L := newSandbox()
	defer L.Close()
	L.SetContext(ctx)

	var diags spec.Diagnostics
	registerZCLModule(L, cat, func(d spec.Diagnostic) {
		d.File = s.ID
		diags = append(diags, d)
	})

	if err := L.DoString(s.LuaCode); err != nil {
		msg := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || strings.Contains(msg, "context deadline exceeded") {
			msg = fmt.Sprintf("timeout (%s)", l.timeout)
		}
		l.logger.Warn("lint script error", "script", s.ID, "err", msg)
		diags = append(diags, spec.Diagnostic{
			Severity: spec.SeverityFatal,
			Code:     spec.DiagLint,
			File:     s.ID,
			Message:  "script error: " + msg,
			Err:      spec.ErrLint,
		})
	}
	return diags
}

// newSandbox returns a Lua state without file, process or module access.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)
	return L
}
