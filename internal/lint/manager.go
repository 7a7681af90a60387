//go:build !no_lint

package lint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validScriptID checks that a script ID is safe to use as a filename component.
func validScriptID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return false
	}
	return true
}

// Manager loads lint scripts from a directory.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates a script manager rooted at dir. A missing directory
// holds no scripts.
func NewManager(dir string, logger *slog.Logger) *Manager {
	return &Manager{dir: dir, logger: logger}
}

// List returns the scripts in the directory ordered by ID. Scripts whose
// metadata disables them are included; callers filter on Meta.Enabled.
func (m *Manager) List() ([]*Script, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	var scripts []*Script
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		s, err := m.parseFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn("skip unreadable script", "file", e.Name(), "err", err)
			continue
		}
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].ID < scripts[j].ID })
	return scripts, nil
}

// Get returns a single script by ID (filename stem).
func (m *Manager) Get(id string) (*Script, error) {
	if !validScriptID(id) {
		return nil, fmt.Errorf("invalid script id: %q", id)
	}
	return m.parseFile(filepath.Join(m.dir, id+".lua"))
}

// parseFile reads a .lua script. A script without a metadata line is
// enabled and named after its file.
func (m *Manager) parseFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSuffix(filepath.Base(path), ".lua")
	s := &Script{
		ID:       id,
		Meta:     ScriptMeta{Name: id, Enabled: true},
		LuaCode:  string(data),
		FilePath: path,
	}

	first, rest, _ := strings.Cut(s.LuaCode, "\n")
	if strings.HasPrefix(first, "-- {") {
		if err := json.Unmarshal([]byte(strings.TrimPrefix(first, "-- ")), &s.Meta); err != nil {
			m.logger.Warn("script metadata parse error", "file", path, "err", err)
		}
		// Keep the line count so Lua error positions match the file.
		s.LuaCode = "\n" + rest
	}
	return s, nil
}
