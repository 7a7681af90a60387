package zcl

import (
	"log/slog"
	"os"
	"testing"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	r := NewRegistry(logger)

	c := Cluster{
		Code: 0x0006,
		Name: "OnOff",
		Attributes: []Attribute{
			{Code: 0, Name: "OnOff", Type: ResolveKind("bool", "OnOff"), Readable: true},
		},
	}
	r.Register(c)

	got := r.Get(0x0006)
	if got == nil {
		t.Fatal("cluster not found")
	}
	if got.Name != "OnOff" {
		t.Errorf("name = %q, want %q", got.Name, "OnOff")
	}
	if len(got.Attributes) != 1 {
		t.Errorf("attrs = %d, want 1", len(got.Attributes))
	}

	got.Attributes[0].Name = "changed"
	if r.Get(0x0006).Attributes[0].Name != "OnOff" {
		t.Error("Get returned a cluster sharing storage with the registry")
	}
}

func TestRegistryMerge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	r := NewRegistry(logger)

	r.Register(Cluster{
		Code: 0x0006,
		Name: "OnOff",
		Attributes: []Attribute{
			{Code: 0, Name: "OnOff", Type: ResolveKind("bool", "OnOff")},
		},
	})

	r.Register(Cluster{
		Code: 0x0006,
		Attributes: []Attribute{
			{Code: 0, Name: "Shadowed", Type: ResolveKind("bool", "Shadowed")},
			{Code: 0x4003, Name: "StartUpOnOff", Type: ResolveKind("enum8", "StartUpOnOff"), Writable: true},
		},
	})

	got := r.Get(0x0006)
	if len(got.Attributes) != 2 {
		t.Errorf("after merge: attrs = %d, want 2", len(got.Attributes))
	}
	if got.FindAttribute(0).Name != "OnOff" {
		t.Errorf("existing attribute replaced by %q", got.FindAttribute(0).Name)
	}

	attr := got.FindAttribute(0x4003)
	if attr == nil {
		t.Fatal("merged attribute not found")
	}
	if attr.Name != "StartUpOnOff" {
		t.Errorf("name = %q, want StartUpOnOff", attr.Name)
	}
	if attr.Access() != AccessWrite {
		t.Errorf("access = %#x, want %#x", attr.Access(), AccessWrite)
	}
}

func TestRegistryAll(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	r := NewRegistry(logger)

	r.Register(Cluster{Code: 3, Name: "C"})
	r.Register(Cluster{Code: 1, Name: "A"})
	r.Register(Cluster{Code: 2, Name: "B"})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("got %d clusters, want 3", len(all))
	}
	for i, want := range []string{"A", "B", "C"} {
		if all[i].Name != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].Name, want)
		}
	}
	if r.GetByName("B") == nil || r.GetByName("B").Code != 2 {
		t.Error("GetByName(B) did not find code 2")
	}
}

func TestRegistryLoadCatalog(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	status := &Enum{Name: "ReportingStatus", Namespace: "general", Width: 8, Sentinel: 0xFF,
		Variants: []Variant{{0, "Pending"}, {1, "Complete"}, {0xFF, "None"}}}
	mode := &Enum{Name: "SystemMode", Namespace: "hvac", Cluster: "Thermostat", Width: 8, Sentinel: 0xFF,
		Variants: []Variant{{0, "Off"}, {0xFF, "None"}}}

	cat := &Catalog{
		Globals:     []Attribute{{Code: 0xFFFD, Name: "ClusterRevision", Type: ResolveKind("uint16", "ClusterRevision")}},
		GlobalEnums: []*Enum{status},
		Clusters: []Cluster{
			{Code: 0x0201, Name: "Thermostat", Namespace: "hvac", Enums: []*Enum{mode}},
		},
	}

	r := NewRegistryFromCatalog(cat, logger)
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
	if len(r.Globals()) != 1 {
		t.Errorf("globals = %d, want 1", len(r.Globals()))
	}
	if r.Enum("general.ReportingStatus") != status {
		t.Error("global enum not registered by key")
	}
	if r.Enum("hvac.Thermostat.SystemMode") != mode {
		t.Error("cluster enum not registered by key")
	}
	enums := r.Enums()
	if len(enums) != 2 || enums[0] != status {
		t.Errorf("enums not ordered by key: %v", enums)
	}
}
