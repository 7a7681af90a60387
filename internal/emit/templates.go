package emit

import (
	"fmt"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	headerTmpl +
		typesTmpl +
		namespaceTmpl +
		globalsTmpl +
		enumTmpl +
		attrTmpl +
		clusterTmpl,
))

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return b.String(), nil
}

const headerTmpl = `{{define "header"}}// Code generated by zclc. DO NOT EDIT.
{{- if .Source}}
// Source: {{.Source}}
{{- end}}

package {{.Package}}
{{end}}`

const typesTmpl = `{{define "types"}}{{template "header" .}}
// AttributeSide indicates which side of a cluster hosts an attribute.
type AttributeSide uint8

const (
	SideServer AttributeSide = iota
	SideClient
	SideEither
)

// RangeKind discriminates a Range.
type RangeKind uint8

const (
	RangeIgnore RangeKind = iota
	RangeValue
	RangeFull
	RangeFullWithNone
	RangeSize
	RangeInclusive
	RangeReference
)

// Range is the validity constraint of an attribute. Min and Max hold
// literal bounds, MinAttr and MaxAttr the codes of bounding attributes.
type Range[T any] struct {
	Kind    RangeKind
	Size    int
	Min     T
	Max     T
	MinAttr uint16
	MaxAttr uint16
}

// Attribute describes a ZCL attribute whose values have Go type T.
type Attribute[T any] struct {
	Code       uint16
	Name       string
	Side       AttributeSide
	Readable   bool
	Writable   bool
	Reportable bool
	Scene      bool
	Mandatory  bool
	TypeID     uint8
	TypeName   string
	// Default is nil when there is no default or the default is absent.
	Default *T
	// DefaultIsNonValue is set when the default is the no-value encoding.
	DefaultIsNonValue bool
	// NonValue is nil when the type reserves no encoding for "no value"
	// or expresses it by omission.
	NonValue *T
	Range    Range[T]
}

// AttrSummary pairs an attribute name with its type name.
type AttrSummary struct {
	Name     string
	TypeName string
}

func ptr[T any](v T) *T { return &v }
{{end}}`

const namespaceTmpl = `{{define "namespace"}}{{template "header" .}}
{{- range .Enums}}{{template "enum" .}}{{end}}
{{- range .Clusters}}{{template "cluster" .}}{{end}}
{{- end}}`

const globalsTmpl = `{{define "globals"}}{{template "header" .}}
{{- range .Globals}}{{template "attr" .}}{{end}}
{{- end}}`

const enumTmpl = `{{define "enum"}}
// {{.GoName}} is the {{.Name}} enumeration{{if .Cluster}} of the {{.Cluster}} cluster{{end}}.
type {{.GoName}} {{.Underlying}}

const (
{{- range .Variants}}
	{{.Const}} {{$.GoName}} = {{.Value}}
{{- end}}
)

func (v {{.GoName}}) String() string {
	switch v {
{{- range .Variants}}
	case {{.Const}}:
		return {{quote .Name}}
{{- end}}
	}
	return fmt.Sprintf("{{.GoName}}(%#x)", {{.Underlying}}(v))
}
{{end}}`

const attrTmpl = `{{define "attr"}}
// {{.Const}} is attribute {{.Code}} {{.Name}} of type {{.TypeName}}.
var {{.Const}} = Attribute[{{.GoType}}]{
	Code:       {{.Code}},
	Name:       {{quote .Name}},
	Side:       {{.Side}},
	Readable:   {{.Readable}},
	Writable:   {{.Writable}},
	Reportable: {{.Reportable}},
	Scene:      {{.Scene}},
	Mandatory:  {{.Mandatory}},
	TypeID:     {{.TypeID}},
	TypeName:   {{quote .TypeName}},
{{- if .Default}}
	Default: {{.Default}},
{{- end}}
{{- if .DefaultIsNonValue}}
	DefaultIsNonValue: true,
{{- end}}
{{- if .NonValue}}
	NonValue: {{.NonValue}},
{{- end}}
	Range: {{.Range}},
}
{{end}}`

const clusterTmpl = `{{define "cluster"}}
// {{.GoName}}Code identifies the {{.Name}} cluster.
const {{.GoName}}Code uint16 = {{.Code}}
{{range .Attrs}}{{template "attr" .}}{{end}}
// {{.GoName}}Attrs holds the attribute descriptors of the {{.Name}} cluster.
type {{.GoName}}Attrs struct {
{{- range .Attrs}}
	{{.Field}} Attribute[{{.GoType}}]
{{- end}}
}

// {{.GoName}}Attributes is the descriptor set of the {{.Name}} cluster.
var {{.GoName}}Attributes = {{.GoName}}Attrs{
{{- range .Attrs}}
	{{.Field}}: {{.Const}},
{{- end}}
}

// Attrs lists (name, type name) pairs in declaration order.
func ({{.GoName}}Attrs) Attrs() []AttrSummary {
	return []AttrSummary{
{{- range .Attrs}}
		{ {{- quote .Name}}, {{quote .TypeName -}} },
{{- end}}
	}
}
{{end}}`
