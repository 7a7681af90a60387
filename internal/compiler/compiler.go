// Package compiler resolves parsed spec files into an immutable catalog of
// cluster, attribute and enum descriptors.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

type location struct {
	file    string
	line    int
	cluster string
	attr    string
}

type compiler struct {
	logger *slog.Logger
	diags  spec.Diagnostics

	namespaces []string
	fileEnums  map[string][]*zcl.Enum
}

// Compile resolves every file into a catalog. All diagnostics are
// collected; if any is fatal the catalog is nil and the error joins the
// fatal ones. The result does not depend on the order of files.
func Compile(files []*spec.File, logger *slog.Logger) (*zcl.Catalog, spec.Diagnostics, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &compiler{
		logger:    logger,
		fileEnums: make(map[string][]*zcl.Enum),
	}

	files = append([]*spec.File(nil), files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for i := 0; i < len(files); i++ {
		f := files[i]
		if len(c.namespaces) > 0 && c.namespaces[len(c.namespaces)-1] == f.Name {
			c.report(location{file: f.Name}, spec.SeverityFatal, spec.DiagDuplicateNamespace, spec.ErrDuplicate,
				"namespace %s is declared by more than one file", f.Name)
			files = append(files[:i], files[i+1:]...)
			i--
			continue
		}
		c.namespaces = append(c.namespaces, f.Name)
		c.fileEnums[f.Name] = c.compileEnums(f.Enums, f.Name, "")
	}

	cat := &zcl.Catalog{}
	globalCodes := make(map[uint16]string)
	globalNames := make(map[string]bool)
	for _, f := range files {
		ns := f.Name
		for _, raw := range f.Globals {
			at := location{file: ns, line: raw.Line, attr: raw.Name}
			if !c.checkUnique(at, raw, globalCodes, globalNames) {
				continue
			}
			sc := enumScope{file: c.fileEnums[ns]}
			add := func(e *zcl.Enum) { c.fileEnums[ns] = append(c.fileEnums[ns], e) }
			if a, ok := c.compileAttribute(raw, at, nil, sc, add); ok {
				cat.Globals = append(cat.Globals, a)
			}
		}

		for _, rc := range f.Clusters {
			cat.Clusters = append(cat.Clusters, c.compileCluster(rc, ns))
		}
	}

	for _, ns := range c.namespaces {
		cat.GlobalEnums = append(cat.GlobalEnums, c.fileEnums[ns]...)
	}
	cat.Sort()

	if c.diags.HasFatal() {
		c.logger.Warn("compile failed", "fatal", len(c.diags.Fatal()), "diagnostics", len(c.diags))
		return nil, c.diags, fmt.Errorf("compile: %w", c.diags.Err())
	}
	c.logger.Info("catalog compiled",
		"clusters", len(cat.Clusters), "globals", len(cat.Globals),
		"enums", len(cat.Enums()), "diagnostics", len(c.diags))
	return cat, c.diags, nil
}

func (c *compiler) compileEnums(raws []*spec.Enum, ns, cluster string) []*zcl.Enum {
	var out []*zcl.Enum
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		if seen[raw.Name] {
			c.report(location{file: ns, line: raw.Line, cluster: cluster}, spec.SeverityFatal,
				spec.DiagEnumDuplicateName, spec.ErrDuplicate, "enum %s declared twice", raw.Name)
			continue
		}
		seen[raw.Name] = true
		out = append(out, c.compileEnum(raw, ns, cluster))
	}
	return out
}

func (c *compiler) compileCluster(rc *spec.Cluster, ns string) zcl.Cluster {
	cl := zcl.Cluster{
		Code:      rc.Code,
		Name:      rc.Name,
		Namespace: ns,
		Enums:     c.compileEnums(rc.Enums, ns, rc.Name),
	}

	codes := make(map[uint16]string, len(rc.Attributes))
	names := make(map[string]bool, len(rc.Attributes))
	for _, raw := range rc.Attributes {
		at := location{file: ns, line: raw.Line, cluster: rc.Name, attr: raw.Name}
		if !c.checkUnique(at, raw, codes, names) {
			continue
		}
		sc := enumScope{cluster: cl.Enums, file: c.fileEnums[ns]}
		add := func(e *zcl.Enum) { cl.Enums = append(cl.Enums, e) }
		if a, ok := c.compileAttribute(raw, at, rc, sc, add); ok {
			cl.Attributes = append(cl.Attributes, a)
		}
	}
	sortEnums(cl.Enums)

	c.logger.Debug("cluster compiled", "namespace", ns, "cluster", rc.Name,
		"code", fmt.Sprintf("0x%04X", rc.Code), "attributes", len(cl.Attributes))
	return cl
}

func (c *compiler) checkUnique(at location, raw *spec.Attribute, codes map[uint16]string, names map[string]bool) bool {
	if prev, dup := codes[raw.Code]; dup {
		c.report(at, spec.SeverityFatal, spec.DiagDuplicateAttribute, spec.ErrDuplicate,
			"code 0x%04X already used by %s", raw.Code, prev)
		return false
	}
	if names[raw.Name] {
		c.report(at, spec.SeverityFatal, spec.DiagDuplicateAttribute, spec.ErrDuplicate,
			"name %s declared twice", raw.Name)
		return false
	}
	codes[raw.Code] = raw.Name
	names[raw.Name] = true
	return true
}

// compileAttribute resolves one attr record. cluster is nil for globals.
func (c *compiler) compileAttribute(raw *spec.Attribute, at location, cluster *spec.Cluster, sc enumScope, add func(*zcl.Enum)) (zcl.Attribute, bool) {
	t := zcl.ResolveKind(raw.Kind, raw.Name)
	if t.Kind == zcl.KindUnknown && raw.Kind != "unk" {
		c.report(at, spec.SeverityInfo, spec.DiagUnknownType, nil,
			"type %q is not a known ZCL type; treated as opaque", raw.Kind)
	}

	var enum *zcl.Enum
	if t.IsEnum() {
		if enum = c.bindEnum(&t, raw, at, sc, add); enum == nil {
			return zcl.Attribute{}, false
		}
	}

	rng, err := resolveRange(raw, t, cluster)
	if err != nil {
		c.fail(at, err)
		return zcl.Attribute{}, false
	}
	def, err := resolveDefault(t, enum, raw.Default)
	if err != nil {
		c.fail(at, err)
		return zcl.Attribute{}, false
	}
	if def != nil && raw.Default != defaultNonValue && !rng.Contains(*def) {
		c.report(at, spec.SeverityWarning, spec.DiagDefaultOutOfRange, nil,
			"default %s lies outside [%s, %s]", def, rng.Min, rng.Max)
	}

	access := zcl.ParseAccess(raw.Access)
	return zcl.Attribute{
		Code:       raw.Code,
		Name:       raw.Name,
		Side:       zcl.SideServer,
		Readable:   access&zcl.AccessRead != 0,
		Writable:   access&zcl.AccessWrite != 0,
		Reportable: access&zcl.AccessReport != 0,
		Scene:      access&zcl.AccessScene != 0,
		Mandatory:  raw.Mandatory,
		Type:       t,
		Default:    def,
		Range:      rng,
	}, true
}

func (c *compiler) report(at location, sev spec.Severity, code string, kind error, format string, args ...any) {
	c.diags = append(c.diags, spec.Diagnostic{
		Severity:  sev,
		Code:      code,
		File:      at.file,
		Line:      at.line,
		Cluster:   at.cluster,
		Attribute: at.attr,
		Message:   fmt.Sprintf(format, args...),
		Err:       kind,
	})
}

func (c *compiler) fail(at location, err error) {
	var re *resolveError
	if errors.As(err, &re) {
		c.report(at, spec.SeverityFatal, re.code, re.err, "%s", re.msg)
		return
	}
	c.report(at, spec.SeverityFatal, spec.DiagInvalidLiteral, err, "%v", err)
}
