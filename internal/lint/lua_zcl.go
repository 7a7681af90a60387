//go:build !no_lint

package lint

import (
	"sort"

	lua "github.com/yuin/gopher-lua"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// registerZCLModule registers the read-only `zcl` global table.
//
//	zcl.attributes()                          -> list of attribute tables, globals first
//	zcl.clusters()                            -> list of cluster tables
//	zcl.enums()                               -> list of enum tables
//	zcl.report(level, msg [, cluster, attr])  -> record a finding
func registerZCLModule(L *lua.LState, cat *zcl.Catalog, report func(spec.Diagnostic)) {
	mod := L.NewTable()

	mod.RawSetString("attributes", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		for _, a := range cat.Globals {
			t.Append(attributeTable(L, &a, nil))
		}
		for i := range cat.Clusters {
			c := &cat.Clusters[i]
			for j := range c.Attributes {
				t.Append(attributeTable(L, &c.Attributes[j], c))
			}
		}
		L.Push(t)
		return 1
	}))

	mod.RawSetString("clusters", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		for i := range cat.Clusters {
			c := &cat.Clusters[i]
			ct := L.NewTable()
			ct.RawSetString("code", lua.LNumber(c.Code))
			ct.RawSetString("name", lua.LString(c.Name))
			ct.RawSetString("namespace", lua.LString(c.Namespace))
			ct.RawSetString("attribute_count", lua.LNumber(len(c.Attributes)))
			ct.RawSetString("enum_count", lua.LNumber(len(c.Enums)))
			t.Append(ct)
		}
		L.Push(t)
		return 1
	}))

	mod.RawSetString("enums", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		for _, e := range sortedEnums(cat) {
			et := L.NewTable()
			et.RawSetString("key", lua.LString(e.Key()))
			et.RawSetString("name", lua.LString(e.Name))
			et.RawSetString("namespace", lua.LString(e.Namespace))
			et.RawSetString("cluster", lua.LString(e.Cluster))
			et.RawSetString("width", lua.LNumber(e.Width))
			et.RawSetString("synthesized", lua.LBool(e.Synthesized))
			vs := L.NewTable()
			for _, v := range e.Variants {
				vt := L.NewTable()
				vt.RawSetString("value", lua.LNumber(v.Value))
				vt.RawSetString("name", lua.LString(v.Name))
				vs.Append(vt)
			}
			et.RawSetString("variants", vs)
			t.Append(et)
		}
		L.Push(t)
		return 1
	}))

	mod.RawSetString("report", L.NewFunction(func(L *lua.LState) int {
		level := L.CheckString(1)
		msg := L.CheckString(2)
		d := spec.Diagnostic{
			Code:      spec.DiagLint,
			Cluster:   L.OptString(3, ""),
			Attribute: L.OptString(4, ""),
			Message:   msg,
		}
		switch level {
		case LevelError:
			d.Severity = spec.SeverityFatal
			d.Err = spec.ErrLint
		case LevelWarning, "warn":
			d.Severity = spec.SeverityWarning
		case LevelInfo:
			d.Severity = spec.SeverityInfo
		default:
			L.ArgError(1, "level must be error, warning or info")
			return 0
		}
		report(d)
		return 0
	}))

	L.SetGlobal("zcl", mod)
}

func attributeTable(L *lua.LState, a *zcl.Attribute, c *zcl.Cluster) *lua.LTable {
	t := L.NewTable()
	if c != nil {
		t.RawSetString("cluster", lua.LString(c.Name))
		t.RawSetString("cluster_code", lua.LNumber(c.Code))
		t.RawSetString("namespace", lua.LString(c.Namespace))
	}
	t.RawSetString("global", lua.LBool(c == nil))
	t.RawSetString("code", lua.LNumber(a.Code))
	t.RawSetString("name", lua.LString(a.Name))
	t.RawSetString("side", lua.LString(a.Side))
	t.RawSetString("type", lua.LString(a.Type.Name))
	t.RawSetString("type_id", lua.LNumber(a.Type.ID))
	t.RawSetString("kind", lua.LString(a.Type.Kind))
	t.RawSetString("base_type", lua.LString(zcl.TypeName(a.Type.ID)))
	t.RawSetString("size", lua.LNumber(zcl.TypeSize(a.Type.ID)))
	t.RawSetString("signed", lua.LBool(a.Type.IsSigned()))
	t.RawSetString("readable", lua.LBool(a.Readable))
	t.RawSetString("writable", lua.LBool(a.Writable))
	t.RawSetString("reportable", lua.LBool(a.Reportable))
	t.RawSetString("scene", lua.LBool(a.Scene))
	t.RawSetString("mandatory", lua.LBool(a.Mandatory))
	t.RawSetString("range", lua.LString(a.Range.Kind))
	if a.Type.EnumRef != "" {
		t.RawSetString("enum", lua.LString(a.Type.EnumRef))
	}
	if a.Default != nil {
		t.RawSetString("default", lua.LString(a.Default.String()))
		t.RawSetString("default_is_non_value", lua.LBool(a.Type.NonValue != nil && a.Default.Equal(*a.Type.NonValue)))
	}
	return t
}

func sortedEnums(cat *zcl.Catalog) []*zcl.Enum {
	m := cat.Enums()
	out := make([]*zcl.Enum, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
