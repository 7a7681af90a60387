// Package builder runs the compile pipeline end to end: it loads spec
// sources, compiles and lints them, writes the configured outputs, persists
// the catalog and announces each build on an event bus.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zclc/internal/compiler"
	"zclc/internal/emit"
	"zclc/internal/spec"
	"zclc/internal/store"
	"zclc/internal/zcl"
	"zclc/internal/zcl/clusters"
)

// Config holds builder configuration. Empty output paths disable the
// corresponding output.
type Config struct {
	SpecDir         string
	IncludeStandard bool

	GoDir     string
	GoPackage string
	TablePath string
	JSONPath  string

	// KeepBuilds bounds the stored build history; zero keeps everything.
	KeepBuilds int
	// Debounce is how long Watch waits after the last change to a spec
	// file before checking whether a rebuild is needed.
	Debounce time.Duration
}

// Linter checks a compiled catalog. Findings are reported as diagnostics;
// a fatal one fails the build.
type Linter interface {
	Lint(ctx context.Context, cat *zcl.Catalog) (spec.Diagnostics, error)
}

// DiagnosticReport is the serializable form of a diagnostic.
type DiagnosticReport struct {
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Cluster   string `json:"cluster,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Message   string `json:"message"`
}

// BuildResult describes one build attempt.
type BuildResult struct {
	OK          bool               `json:"ok"`
	Error       string             `json:"error,omitempty"`
	Info        *store.BuildInfo   `json:"info,omitempty"`
	Diagnostics []DiagnosticReport `json:"diagnostics,omitempty"`
	Outputs     []string           `json:"outputs,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	Duration    string             `json:"duration"`

	Catalog *zcl.Catalog `json:"-"`
}

// Builder compiles spec sources into a catalog and keeps the last good one.
type Builder struct {
	cfg    Config
	store  store.Store
	linter Linter
	events *EventBus
	logger *slog.Logger

	buildMu sync.Mutex // serializes builds

	mu       sync.RWMutex
	registry *zcl.Registry
	current  *BuildResult // last successful build
	last     *BuildResult // last attempt
}

// New creates a builder. st and linter may be nil.
func New(cfg Config, st store.Store, linter Linter, events *EventBus, logger *slog.Logger) *Builder {
	if cfg.GoPackage == "" {
		cfg.GoPackage = "zclgen"
	}
	logger = logger.With("component", "builder")
	return &Builder{
		cfg:      cfg,
		store:    st,
		linter:   linter,
		events:   events,
		logger:   logger,
		registry: zcl.NewRegistry(logger),
	}
}

// Events returns the builder's event bus.
func (b *Builder) Events() *EventBus {
	return b.events
}

// Registry returns the registry of the current catalog. A new registry is
// built on every successful build; the returned one is never changed.
func (b *Builder) Registry() *zcl.Registry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.registry
}

// Current returns the last successful build, or nil.
func (b *Builder) Current() *BuildResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Last returns the last build attempt, or nil.
func (b *Builder) Last() *BuildResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Restore makes the stored catalog current, so a server can answer before
// its first build. A store without a catalog is not an error.
func (b *Builder) Restore() error {
	if b.store == nil {
		return nil
	}
	cat, info, err := b.store.LoadCatalog()
	if errors.Is(err, store.ErrNotFound) {
		b.logger.Info("no stored catalog")
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore catalog: %w", err)
	}
	res := &BuildResult{OK: true, Info: info, Catalog: cat, StartedAt: info.BuiltAt}
	b.mu.Lock()
	b.current = res
	b.registry = zcl.NewRegistryFromCatalog(cat, b.logger)
	b.mu.Unlock()
	b.logger.Info("stored catalog restored", "seq", info.Seq, "digest", info.Digest, "clusters", info.Clusters)
	return nil
}

// Build runs the pipeline once. On failure the previous catalog stays
// current and the returned result carries the diagnostics.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	start := time.Now()
	b.events.Emit(Event{Type: EventBuildStarted, Data: start})

	res := &BuildResult{StartedAt: start.UTC()}
	err := b.build(ctx, res)
	res.Duration = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		res.Error = err.Error()
	} else {
		res.OK = true
	}

	// res is shared with readers of Last and Current from here on.
	b.mu.Lock()
	b.last = res
	if err == nil {
		b.current = res
		b.registry = zcl.NewRegistryFromCatalog(res.Catalog, b.logger)
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("build failed", "err", err, "duration", res.Duration)
		b.events.Emit(Event{Type: EventBuildFailed, Data: res})
		return res, err
	}
	b.logger.Info("build succeeded", "seq", res.Info.Seq, "digest", res.Info.Digest,
		"clusters", res.Info.Clusters, "attributes", res.Info.Attributes,
		"warnings", res.Info.Warnings, "duration", res.Duration)
	b.events.Emit(Event{Type: EventBuildSucceeded, Data: res})
	return res, nil
}

func (b *Builder) build(ctx context.Context, res *BuildResult) error {
	sources, names := b.sources()
	if len(sources) == 0 {
		return errors.New("no spec sources configured")
	}

	cat, diags, err := compiler.CompileFS(b.logger, sources...)
	if err == nil && b.linter != nil {
		lds, lerr := b.linter.Lint(ctx, cat)
		diags = append(diags, lds...)
		for _, r := range reportDiagnostics(lds) {
			b.events.Emit(Event{Type: EventLintFinding, Data: r})
		}
		switch {
		case lerr != nil:
			err = fmt.Errorf("lint: %w", lerr)
		case lds.HasFatal():
			err = fmt.Errorf("lint: %w", lds.Err())
		}
	}
	res.Diagnostics = reportDiagnostics(diags)
	for _, d := range diags {
		if d.Severity == spec.SeverityWarning {
			b.logger.Warn("diagnostic", "file", d.File, "line", d.Line, "code", d.Code, "msg", d.Message)
		}
	}
	if err != nil {
		return err
	}

	table, err := emit.EncodeTable(cat)
	if err != nil {
		return err
	}
	if res.Outputs, err = b.writeOutputs(cat, table); err != nil {
		return err
	}

	info := store.NewBuildInfo(cat, emit.Digest(table), diags.Count(spec.SeverityWarning), names)
	if b.store != nil {
		if err := b.store.SaveCatalog(cat, info); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		if b.cfg.KeepBuilds > 0 {
			if err := b.store.PruneBuilds(b.cfg.KeepBuilds); err != nil {
				b.logger.Warn("prune build history", "err", err)
			}
		}
	}
	res.Info = info
	res.Catalog = cat
	return nil
}

// sources returns the spec sources in override order: the embedded
// standard catalog first, then the spec directory.
func (b *Builder) sources() ([]fs.FS, []string) {
	var (
		sources []fs.FS
		names   []string
	)
	if b.cfg.IncludeStandard {
		sources = append(sources, clusters.FS)
		names = append(names, "standard")
	}
	if b.cfg.SpecDir != "" {
		sources = append(sources, os.DirFS(b.cfg.SpecDir))
		names = append(names, b.cfg.SpecDir)
	}
	return sources, names
}

func (b *Builder) writeOutputs(cat *zcl.Catalog, table []byte) ([]string, error) {
	var outputs []string
	if b.cfg.GoDir != "" {
		files, err := emit.WriteGo(b.cfg.GoDir, b.cfg.GoPackage, cat)
		if err != nil {
			return nil, fmt.Errorf("write go source: %w", err)
		}
		for _, f := range files {
			outputs = append(outputs, filepath.Join(b.cfg.GoDir, f))
		}
	}
	if b.cfg.TablePath != "" {
		if err := writeFile(b.cfg.TablePath, table); err != nil {
			return nil, err
		}
		outputs = append(outputs, b.cfg.TablePath)
	}
	if b.cfg.JSONPath != "" {
		data, err := emit.EncodeJSON(cat)
		if err != nil {
			return nil, err
		}
		if err := writeFile(b.cfg.JSONPath, data); err != nil {
			return nil, err
		}
		outputs = append(outputs, b.cfg.JSONPath)
	}
	return outputs, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func reportDiagnostics(ds spec.Diagnostics) []DiagnosticReport {
	if len(ds) == 0 {
		return nil
	}
	out := make([]DiagnosticReport, len(ds))
	for i, d := range ds {
		out[i] = DiagnosticReport{
			Severity:  d.Severity.String(),
			Code:      d.Code,
			File:      d.File,
			Line:      d.Line,
			Cluster:   d.Cluster,
			Attribute: d.Attribute,
			Message:   d.Message,
		}
	}
	return out
}
