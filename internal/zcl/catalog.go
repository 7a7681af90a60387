package zcl

import (
	"fmt"
	"sort"
)

// Catalog is the complete compiled descriptor set. Its order is
// deterministic: clusters by namespace then code, enums by key.
type Catalog struct {
	Globals     []Attribute `json:"globals,omitempty"`
	GlobalEnums []*Enum     `json:"enums,omitempty"`
	Clusters    []Cluster   `json:"clusters"`
}

// Enums returns every enum in the catalog keyed by Enum.Key.
func (c *Catalog) Enums() map[string]*Enum {
	m := make(map[string]*Enum)
	for _, e := range c.GlobalEnums {
		m[e.Key()] = e
	}
	for i := range c.Clusters {
		for _, e := range c.Clusters[i].Enums {
			m[e.Key()] = e
		}
	}
	return m
}

// Sort puts clusters and enums in canonical order.
func (c *Catalog) Sort() {
	sort.SliceStable(c.Clusters, func(i, j int) bool {
		a, b := c.Clusters[i], c.Clusters[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Code < b.Code
	})
	sort.SliceStable(c.GlobalEnums, func(i, j int) bool {
		return c.GlobalEnums[i].Key() < c.GlobalEnums[j].Key()
	})
}

// Bind attaches enum decode tables to every enum-typed value. It is needed
// after a catalog has been decoded from a serialized form.
func (c *Catalog) Bind() error {
	enums := c.Enums()
	for i := range c.Globals {
		if err := bindAttribute(&c.Globals[i], enums); err != nil {
			return err
		}
	}
	for i := range c.Clusters {
		cl := &c.Clusters[i]
		for j := range cl.Attributes {
			if err := bindAttribute(&cl.Attributes[j], enums); err != nil {
				return fmt.Errorf("cluster %s: %w", cl.Name, err)
			}
		}
	}
	return nil
}

func bindAttribute(a *Attribute, enums map[string]*Enum) error {
	for _, v := range []*Value{a.Type.NonValue, a.Default, a.Range.Min, a.Range.Max} {
		if v == nil || v.Kind != ValueEnum {
			continue
		}
		e, ok := enums[v.Enum]
		if !ok {
			return fmt.Errorf("attribute %s: enum %q not in catalog", a.Name, v.Enum)
		}
		v.table = e
	}
	return nil
}
