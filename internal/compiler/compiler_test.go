package compiler

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func compileFiles(t *testing.T, files map[string]string) (*zcl.Catalog, spec.Diagnostics, error) {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name+spec.Ext] = &fstest.MapFile{Data: []byte(strings.TrimSpace(src) + "\n")}
	}
	return CompileFS(testLogger, fsys)
}

func mustCompile(t *testing.T, src string) (*zcl.Catalog, spec.Diagnostics) {
	t.Helper()
	cat, diags, err := compileFiles(t, map[string]string{"test": src})
	require.NoError(t, err, "diagnostics: %v", diags)
	require.NotNil(t, cat)
	return cat, diags
}

func mustFail(t *testing.T, src string, kind error) spec.Diagnostics {
	t.Helper()
	cat, diags, err := compileFiles(t, map[string]string{"test": src})
	require.Error(t, err)
	require.Nil(t, cat)
	require.ErrorIs(t, err, kind)
	return diags
}

func cluster(t *testing.T, cat *zcl.Catalog, name string) *zcl.Cluster {
	t.Helper()
	for i := range cat.Clusters {
		if cat.Clusters[i].Name == name {
			return &cat.Clusters[i]
		}
	}
	t.Fatalf("cluster %s not in catalog", name)
	return nil
}

func attribute(t *testing.T, c *zcl.Cluster, name string) *zcl.Attribute {
	t.Helper()
	a := c.FindAttributeByName(name)
	require.NotNil(t, a, "attribute %s", name)
	return a
}

func TestCompileBasicAttribute(t *testing.T) {
	cat, diags := mustCompile(t, `
cluster Basic 0x0000
attr 0x0000 ZclVersion uint8 0x00 0xff R 8 M
}`)
	require.Empty(t, diags)

	a := attribute(t, cluster(t, cat, "Basic"), "ZclVersion")
	require.Equal(t, uint16(0x0000), a.Code)
	require.Equal(t, zcl.TypeUint8, a.Type.ID)
	require.Equal(t, "U8", a.Type.Name)
	require.Equal(t, zcl.SideServer, a.Side)
	require.True(t, a.Readable)
	require.False(t, a.Writable)
	require.False(t, a.Reportable)
	require.True(t, a.Mandatory)

	require.Equal(t, zcl.RangeInclusive, a.Range.Kind)
	require.Equal(t, zcl.UintValue(0), *a.Range.Min)
	require.Equal(t, zcl.UintValue(255), *a.Range.Max)
	require.NotNil(t, a.Default)
	require.Equal(t, zcl.UintValue(8), *a.Default)

	require.NotNil(t, a.Type.NonValue)
	require.Equal(t, zcl.UintValue(0xff), *a.Type.NonValue)
}

func TestCompileEnumSentinelDefault(t *testing.T) {
	cat, diags := mustCompile(t, `
enum8 ReportingStatus
0x00 Pending
0x01 Complete
}
attr 0xfffe AttributeReportingStatus enum8 R non O
`)
	require.Empty(t, diags.Fatal())
	require.Len(t, cat.Globals, 1)

	a := cat.Globals[0]
	require.Equal(t, "Enum8<ReportingStatus>", a.Type.Name)
	require.Equal(t, "test.ReportingStatus", a.Type.EnumRef)
	require.Equal(t, zcl.RangeIgnore, a.Range.Kind)
	require.False(t, a.Mandatory)

	e := cat.Enums()["test.ReportingStatus"]
	require.NotNil(t, e)
	require.Len(t, e.Variants, 3)
	require.True(t, e.Synthesized)

	vr, err := e.Decode(0xff)
	require.NoError(t, err)
	require.Equal(t, "None", vr.Name)

	_, err = e.Decode(2)
	require.ErrorIs(t, err, zcl.ErrUndecodableEnumValue)

	require.NotNil(t, a.Default)
	require.Equal(t, zcl.ValueEnum, a.Default.Kind)
	require.Equal(t, uint64(0xff), a.Default.Uint)
	got, err := a.Default.Variant()
	require.NoError(t, err)
	require.Equal(t, zcl.Variant{Value: 0xff, Name: "None"}, got)
	require.Same(t, e, a.Default.EnumTable())
}

func TestCompileEnumDefaultByName(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Basic 0x0000
enum8 PowerSource
0x00 Unknown
0x01 Mains
}
attr 0x0007 PowerSource enum8 R Mains M
attr 0x0008 BackupSource enum8:PowerSource R 0x00 O
}`)
	c := cluster(t, cat, "Basic")

	a := attribute(t, c, "PowerSource")
	require.Equal(t, uint64(1), a.Default.Uint)
	require.Equal(t, "Mains", a.Default.Str)

	b := attribute(t, c, "BackupSource")
	require.Equal(t, "Enum8<PowerSource>", b.Type.Name)
	require.Equal(t, "Unknown", b.Default.Str)
	require.Same(t, a.Default.EnumTable(), b.Default.EnumTable())
}

func TestCompileEnumDefaultNotDeclared(t *testing.T) {
	diags := mustFail(t, `
cluster Basic 0x0000
enum8 PowerSource { 0x00 Unknown, 0x01 Mains }
attr 0x0007 PowerSource enum8 R 0x05 M
}`, spec.ErrInvalidLiteral)
	require.Len(t, diags.WithCode(spec.DiagInvalidLiteral), 1)
}

func TestCompileSignedReinterpretation(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Temp 0x0402
attr 0x0000 Low int8 0x80 0x7f R 0xff O
attr 0x0001 Wide int16 -100 100 R -5 O
}`)
	c := cluster(t, cat, "Temp")

	low := attribute(t, c, "Low")
	require.Equal(t, zcl.IntValue(-128), *low.Range.Min)
	require.Equal(t, zcl.IntValue(127), *low.Range.Max)
	require.Equal(t, zcl.IntValue(-1), *low.Default)
	require.Equal(t, zcl.IntValue(-128), *low.Type.NonValue)

	wide := attribute(t, c, "Wide")
	require.Equal(t, zcl.IntValue(-100), *wide.Range.Min)
	require.Equal(t, zcl.IntValue(-5), *wide.Default)
}

func TestCompileLiteralTooWide(t *testing.T) {
	mustFail(t, `
cluster Temp 0x0402
attr 0x0000 Low int8 0x00 0x1ff R - O
}`, spec.ErrInvalidLiteral)
}

func TestCompileBoundReference(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Level 0x0008
attr 0x0000 CurrentLevel uint8 MinLevel MaxLevel RP - M
attr 0x0002 MinLevel uint8 R 0x01 O
attr 0x0003 MaxLevel uint8 R 0xfe O
}`)
	a := attribute(t, cluster(t, cat, "Level"), "CurrentLevel")
	require.Equal(t, zcl.RangeReference, a.Range.Kind)
	require.Equal(t, uint16(0x0002), a.Range.MinAttr)
	require.Equal(t, uint16(0x0003), a.Range.MaxAttr)
	require.True(t, a.Reportable)
	require.Nil(t, a.Default)
}

func TestCompileBoundReferenceUnresolved(t *testing.T) {
	diags := mustFail(t, `
cluster Level 0x0008
attr 0x0000 CurrentLevel uint8 MinLevel Missing R - M
attr 0x0002 MinLevel uint8 R 0x01 O
}`, spec.ErrUnresolvedBoundReference)

	fatal := diags.Fatal()
	require.Len(t, fatal, 1)
	require.Equal(t, "Level", fatal[0].Cluster)
	require.Equal(t, "CurrentLevel", fatal[0].Attribute)
	require.Equal(t, 2, fatal[0].Line)
}

func TestCompileStringSize(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Basic 0x0000
attr 0x0004 ManufacturerName string 0 32 R - O
attr 0x0005 ModelIdentifier string 32 R "" O
attr 0x4000 SWBuildID string16 0x00 0x0200 R - O
}`)
	c := cluster(t, cat, "Basic")
	require.Equal(t, zcl.AttributeRange{Kind: zcl.RangeSize, Size: 32}, attribute(t, c, "ManufacturerName").Range)
	require.Equal(t, zcl.AttributeRange{Kind: zcl.RangeSize, Size: 32}, attribute(t, c, "ModelIdentifier").Range)
	require.Equal(t, 0x200, attribute(t, c, "SWBuildID").Range.Size)
	require.Equal(t, zcl.StringValue(""), *attribute(t, c, "ModelIdentifier").Default)
}

func TestCompileStringSizeNotInteger(t *testing.T) {
	mustFail(t, `
cluster Basic 0x0000
attr 0x0004 ManufacturerName string zero 32 R - O
}`, spec.ErrInvalidLiteral)
}

func TestCompileRangeShorthands(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Meter 0x0702
attr 0x0000 A uint32 value R - O
attr 0x0001 B uint32 full R - O
attr 0x0002 C uint32 full-non R non O
attr 0x0003 D uint32 - - R - O
}`)
	c := cluster(t, cat, "Meter")
	require.Equal(t, zcl.RangeValue, attribute(t, c, "A").Range.Kind)
	require.Equal(t, zcl.RangeFull, attribute(t, c, "B").Range.Kind)
	require.Equal(t, zcl.RangeFullWithNone, attribute(t, c, "C").Range.Kind)
	require.Equal(t, zcl.RangeIgnore, attribute(t, c, "D").Range.Kind)
	require.Equal(t, zcl.UintValue(0xffffffff), *attribute(t, c, "C").Default)
}

func TestCompileFloat(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster Analog 0x000c
attr 0x0055 PresentValue single -273.15 1e6 RWP non M
}`)
	a := attribute(t, cluster(t, cat, "Analog"), "PresentValue")
	require.Equal(t, zcl.TypeFloat32, a.Type.ID)
	require.InDelta(t, -273.15, a.Range.Min.Float(), 1e-9)
	require.InDelta(t, 1e6, a.Range.Max.Float(), 1e-9)
	require.True(t, math.IsNaN(a.Default.Float()))
	require.True(t, a.Default.Equal(*a.Type.NonValue))
}

func TestCompileFloatOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		attr string
	}{
		{"single bound", "attr 0x0000 X single 0,1e300 R - O"},
		{"single default", "attr 0x0000 X single - R 1e300 O"},
		{"semi bound", "attr 0x0001 H semi 0,100000 R - O"},
		{"semi default", "attr 0x0001 H semi - R -70000 O"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustFail(t, "cluster Analog 0x000c\n"+tt.attr+"\n}", spec.ErrInvalidLiteral)
		})
	}

	cat, _ := mustCompile(t, `
cluster Analog 0x000c
attr 0x0000 H semi -65504,65504 R 65504 O
attr 0x0001 D double 0,1e300 R 1e300 O
}`)
	c := cluster(t, cat, "Analog")
	require.Equal(t, 65504.0, attribute(t, c, "H").Range.Max.Float())
	require.Equal(t, 1e300, attribute(t, c, "D").Default.Float())
}

func TestCompileBoolAndBytes(t *testing.T) {
	cat, _ := mustCompile(t, `
cluster OnOff 0x0006
attr 0x0000 OnOff bool R 0 M
attr 0x4000 GlobalSceneControl bool R true O
attr 0x4001 Key key128 R 0x000102030405060708090a0b0c0d0e0f O
attr 0x4002 Blob octstr 8 R 0xbeef O
}`)
	c := cluster(t, cat, "OnOff")
	require.Equal(t, zcl.BoolValue(false), *attribute(t, c, "OnOff").Default)
	require.Equal(t, zcl.BoolValue(true), *attribute(t, c, "GlobalSceneControl").Default)
	require.Len(t, attribute(t, c, "Key").Default.Bytes, 16)
	require.Equal(t, []byte{0xbe, 0xef}, attribute(t, c, "Blob").Default.Bytes)
}

func TestCompileMissingSentinel(t *testing.T) {
	diags := mustFail(t, `
cluster Raw 0xfc00
attr 0x0000 Payload data8 R non O
}`, spec.ErrMissingSentinel)
	require.Len(t, diags.WithCode(spec.DiagMissingSentinel), 1)
}

func TestCompileDefaultOutOfRange(t *testing.T) {
	cat, diags := mustCompile(t, `
attr 0xfffd ClusterRevision uint16 0x0001 0xfffe R 0x0000 M
`)
	require.Len(t, cat.Globals, 1)
	warn := diags.WithCode(spec.DiagDefaultOutOfRange)
	require.Len(t, warn, 1)
	require.Equal(t, spec.SeverityWarning, warn[0].Severity)
	require.Equal(t, zcl.UintValue(0), *cat.Globals[0].Default)
}

func TestCompileEnumDuplicateValue(t *testing.T) {
	cat, diags := mustCompile(t, `
enum8 Mode
0x00 Off
0x00 Disabled
0x01 On
}
`)
	e := cat.Enums()["test.Mode"]
	require.Equal(t, []zcl.Variant{
		{Value: 0x00, Name: "Off"},
		{Value: 0x01, Name: "On"},
		{Value: 0xff, Name: "None"},
	}, e.Variants)
	require.Len(t, diags.WithCode(spec.DiagEnumDuplicateValue), 1)
}

func TestCompileEnumDuplicateName(t *testing.T) {
	mustFail(t, `
enum8 Mode { 0x00 Off, 0x01 Off }
`, spec.ErrDuplicate)
}

func TestCompileEnumDeclaredSentinel(t *testing.T) {
	cat, _ := mustCompile(t, `
enum16 Wide
0x0000 Zero
0xffff Invalid
}
`)
	e := cat.Enums()["test.Wide"]
	require.False(t, e.Synthesized)
	require.Equal(t, uint64(0xffff), e.Sentinel)
	require.Equal(t, "Invalid", e.SentinelVariant().Name)
	require.Len(t, e.Variants, 2)
}

func TestCompileEnumNoneNotAtSentinel(t *testing.T) {
	diags := mustFail(t, `
enum8 Mode { 0x00 None, 0x01 On }
`, spec.ErrDuplicate)
	require.Len(t, diags.WithCode(spec.DiagEnumSentinelName), 1)
}

func TestCompileEnumValueTooWide(t *testing.T) {
	mustFail(t, `
enum8 Mode { 0x100 Big }
`, spec.ErrInvalidLiteral)
}

func TestCompileEnumWidthMismatch(t *testing.T) {
	diags := mustFail(t, `
cluster Basic 0x0000
enum8 PowerSource { 0x01 Mains }
attr 0x0007 PowerSource enum16 R - O
}`, spec.ErrUnresolvedEnum)
	require.Len(t, diags.WithCode(spec.DiagEnumWidth), 1)
}

func TestCompileEnumUnresolvedIsSynthesized(t *testing.T) {
	cat, diags := mustCompile(t, `
cluster Thermostat 0x0201
attr 0x001c SystemMode enum8 RW non M
}`)
	require.Len(t, diags.WithCode(spec.DiagEnumUnresolved), 1)

	c := cluster(t, cat, "Thermostat")
	require.Len(t, c.Enums, 1)
	e := c.Enums[0]
	require.Equal(t, "SystemMode", e.Name)
	require.Equal(t, []zcl.Variant{{Value: 0xff, Name: "None"}}, e.Variants)
	require.Equal(t, "test.Thermostat.SystemMode", attribute(t, c, "SystemMode").Type.EnumRef)
}

func TestCompileEnumScopeOrder(t *testing.T) {
	cat, _, err := compileFiles(t, map[string]string{
		"a_general": `
enum8 Status { 0x00 Global }
`,
		"b_local": `
enum8 Status { 0x00 File }
cluster Local 0x0001
enum8 Status { 0x00 Cluster }
attr 0x0000 Status enum8 R 0 O
}
cluster Other 0x0002
attr 0x0000 Status enum8 R 0 O
}
`,
		"c_remote": `
cluster Remote 0x0003
attr 0x0000 Status enum8 R 0 O
}
`,
	})
	require.NoError(t, err)

	require.Equal(t, "Cluster", attribute(t, cluster(t, cat, "Local"), "Status").Default.Str)
	require.Equal(t, "File", attribute(t, cluster(t, cat, "Other"), "Status").Default.Str)
	require.Equal(t, "Global", attribute(t, cluster(t, cat, "Remote"), "Status").Default.Str)
}

func TestCompileDuplicateAttribute(t *testing.T) {
	diags := mustFail(t, `
cluster Basic 0x0000
attr 0x0000 ZclVersion uint8 R 8 M
attr 0x0000 AppVersion uint8 R 0 O
attr 0x0001 ZclVersion uint8 R 8 M
}`, spec.ErrDuplicate)
	require.Len(t, diags.WithCode(spec.DiagDuplicateAttribute), 2)
}

func TestCompileScopeErrorIsFatal(t *testing.T) {
	diags := mustFail(t, `
cluster Basic 0x0000
attr 0x0000 ZclVersion uint8 R 8 M
}
}`, spec.ErrScope)
	require.Len(t, diags.WithCode(spec.DiagScope), 1)
}

func TestCompileCollectsAllFatal(t *testing.T) {
	_, diags, err := compileFiles(t, map[string]string{"test": `
cluster Basic 0x0000
attr 0x0000 A int8 0 0x1ff R - O
attr 0x0001 B uint8 Lo Hi R - O
attr 0x0002 C data8 R non O
}`})
	require.Error(t, err)
	require.Len(t, diags.Fatal(), 3)
	require.ErrorIs(t, err, spec.ErrInvalidLiteral)
	require.ErrorIs(t, err, spec.ErrUnresolvedBoundReference)
	require.ErrorIs(t, err, spec.ErrMissingSentinel)

	var d spec.Diagnostic
	require.True(t, errors.As(err, &d))
}

func TestCompileDeterministic(t *testing.T) {
	a := `
cluster OnOff 0x0006
attr 0x0000 OnOff bool R 0 M
}`
	b := `
enum8 Status { 0x00 Ok }
cluster Basic 0x0000
attr 0x0000 ZclVersion uint8 0x00 0xff R 8 M
}
attr 0xfffd ClusterRevision uint16 0x0001 0xfffe R 0x0001 M
`
	p1, _, err := spec.LoadFS(fstest.MapFS{
		"a.txt": {Data: []byte(a)},
		"b.txt": {Data: []byte(b)},
	}, testLogger)
	require.NoError(t, err)

	first, _, err := Compile(p1, testLogger)
	require.NoError(t, err)
	second, _, err := Compile([]*spec.File{p1[1], p1[0]}, testLogger)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, "a", first.Clusters[0].Namespace)
	require.Equal(t, "b", first.Clusters[1].Namespace)
}

func TestCompileDuplicateNamespace(t *testing.T) {
	f1, _ := spec.Parse("general", strings.NewReader("attr 0x0000 A uint8 R 0 O\n"))
	f2, _ := spec.Parse("general", strings.NewReader("attr 0x0001 B uint8 R 0 O\n"))

	cat, diags, err := Compile([]*spec.File{f1, f2}, testLogger)
	require.ErrorIs(t, err, spec.ErrDuplicate)
	require.Nil(t, cat)
	require.Len(t, diags.WithCode(spec.DiagDuplicateNamespace), 1)
}

func TestCompileFSOverride(t *testing.T) {
	std := fstest.MapFS{"general.txt": {Data: []byte("attr 0x0000 A uint8 R 0 O\n")}}
	user := fstest.MapFS{"general.txt": {Data: []byte("attr 0x0001 B uint8 R 0 O\n")}}

	cat, _, err := CompileFS(testLogger, std, user)
	require.NoError(t, err)
	require.Len(t, cat.Globals, 1)
	require.Equal(t, "B", cat.Globals[0].Name)
}

func TestCompileUnknownType(t *testing.T) {
	cat, diags := mustCompile(t, `
cluster Odd 0xfc01
attr 0x0000 Thing array R - O
}`)
	a := attribute(t, cluster(t, cat, "Odd"), "Thing")
	require.Equal(t, zcl.KindUnknown, a.Type.Kind)
	require.Nil(t, a.Type.NonValue)
	info := diags.WithCode(spec.DiagUnknownType)
	require.Len(t, info, 1)
	require.Equal(t, spec.SeverityInfo, info[0].Severity)
}
