//go:build !no_lint

package lint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zclc/internal/compiler"
	"zclc/internal/spec"
	"zclc/internal/zcl"
	"zclc/internal/zcl/clusters"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func standardCatalog(t *testing.T) *zcl.Catalog {
	t.Helper()
	cat, _, err := compiler.CompileFS(testLogger(), clusters.FS)
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func newLinter(t *testing.T, scripts map[string]string) *Linter {
	t.Helper()
	dir := t.TempDir()
	for name, code := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name+".lua"), []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewLinter(NewManager(dir, testLogger()), time.Second, testLogger())
}

func TestLintReportsFindings(t *testing.T) {
	l := newLinter(t, map[string]string{
		"writable_mandatory": `
for _, a in ipairs(zcl.attributes()) do
  if a.name == "StartUpOnOff" then
    zcl.report("warning", "start-up behaviour is writable", a.cluster, a.name)
  end
  if a.global and a.name == "ClusterRevision" then
    zcl.report("info", "revision default " .. a.default)
  end
end
`,
	})

	diags, err := l.Lint(context.Background(), standardCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want 2", diags)
	}
	// Globals are visited first.
	if diags[0].Severity != spec.SeverityInfo || diags[0].Message != "revision default 0x0" {
		t.Errorf("info = %+v", diags[0])
	}
	w := diags[1]
	if w.Severity != spec.SeverityWarning || w.Code != spec.DiagLint || w.File != "writable_mandatory" {
		t.Errorf("warning = %+v", w)
	}
	if w.Cluster != "OnOff" || w.Attribute != "StartUpOnOff" {
		t.Errorf("location = %s.%s, want OnOff.StartUpOnOff", w.Cluster, w.Attribute)
	}
	if diags.HasFatal() {
		t.Error("warnings reported as fatal")
	}
}

func TestLintErrorLevelIsFatal(t *testing.T) {
	l := newLinter(t, map[string]string{
		"enums": `
for _, e in ipairs(zcl.enums()) do
  if e.key == "global.ReportingStatus" and e.synthesized then
    zcl.report("error", e.name .. " has no declared sentinel")
  end
end
`,
	})

	diags, err := l.Lint(context.Background(), standardCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if !diags.HasFatal() || !errors.Is(diags.Err(), spec.ErrLint) {
		t.Fatalf("diagnostics = %v, want a fatal lint finding", diags)
	}
}

func TestLintClusters(t *testing.T) {
	l := newLinter(t, map[string]string{
		"count": `
local n = 0
for _, c in ipairs(zcl.clusters()) do
  if c.name == "OnOff" and c.code == 6 and c.enum_count == 1 then n = n + 1 end
end
if n ~= 1 then zcl.report("error", "OnOff not found") end
`,
	})
	diags, err := l.Lint(context.Background(), standardCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestLintAttributeWireShape(t *testing.T) {
	l := newLinter(t, map[string]string{
		"shape": `
for _, a in ipairs(zcl.attributes()) do
  if a.global and a.name == "ClusterRevision" then
    if a.base_type ~= "uint16" or a.size ~= 2 or a.signed then
      zcl.report("error", "ClusterRevision shape " .. a.base_type .. "/" .. a.size)
    end
  end
  if a.type_id >= 0x41 and a.type_id <= 0x44 and a.size ~= -1 then
    zcl.report("error", a.name .. " string has fixed size " .. a.size)
  end
  if a.kind == "int" and not a.signed then
    zcl.report("error", a.name .. " int not signed")
  end
end
`,
	})
	diags, err := l.Lint(context.Background(), standardCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestLintScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"syntax", "this is not lua", "script error"},
		{"bad level", `zcl.report("loud", "x")`, "level must be"},
		{"sandbox", `os.exit(1)`, "script error"},
		{"loadstring", `loadstring("return 1")()`, "script error"},
		{"dofile", `dofile("/etc/passwd")`, "script error"},
		{"timeout", `while true do end`, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLinter(t, map[string]string{"rule": tt.code})
			l.timeout = 100 * time.Millisecond

			diags, err := l.Lint(context.Background(), &zcl.Catalog{})
			if err != nil {
				t.Fatal(err)
			}
			if len(diags) != 1 || diags[0].Severity != spec.SeverityFatal {
				t.Fatalf("diagnostics = %v, want one fatal", diags)
			}
			if !strings.Contains(diags[0].Message, tt.want) {
				t.Errorf("message = %q, want it to contain %q", diags[0].Message, tt.want)
			}
		})
	}
}

func TestLintDisabledScript(t *testing.T) {
	l := newLinter(t, map[string]string{
		"off": "-- {\"name\": \"off\", \"enabled\": false}\nzcl.report(\"error\", \"should not run\")\n",
	})
	diags, err := l.Lint(context.Background(), &zcl.Catalog{})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("disabled script ran: %v", diags)
	}
}

func TestManagerList(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.lua":     "-- {\"name\": \"Second\"}\nreturn\n",
		"a.lua":     "return\n",
		"notes.txt": "ignored",
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(dir, testLogger())
	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 2 || scripts[0].ID != "a" || scripts[1].ID != "b" {
		t.Fatalf("scripts = %+v", scripts)
	}
	if scripts[1].Meta.Name != "Second" || !scripts[1].Meta.Enabled {
		t.Errorf("meta = %+v", scripts[1].Meta)
	}
	if !strings.HasPrefix(scripts[1].LuaCode, "\n") {
		t.Error("metadata line not blanked")
	}

	if _, err := m.Get("../etc/passwd"); err == nil {
		t.Error("path traversal accepted")
	}
	missing := NewManager(filepath.Join(dir, "nope"), testLogger())
	if scripts, err := missing.List(); err != nil || scripts != nil {
		t.Errorf("missing dir: %v, %v", scripts, err)
	}
}
