//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"zclc/internal/builder"
	"zclc/internal/zcl"
)

// message is a retained MQTT publication.
type message struct {
	Topic   string // e.g. "zclc/clusters/general/OnOff"
	Payload []byte // JSON, empty means delete
}

// attrPayload is the published form of one attribute.
type attrPayload struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	BaseType  string `json:"base_type"`
	Access    string `json:"access"`
	Mandatory bool   `json:"mandatory"`
	Default   string `json:"default,omitempty"`
	Range     string `json:"range"`
}

// clusterPayload is the published form of a cluster.
type clusterPayload struct {
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Namespace  string        `json:"namespace"`
	Attributes []attrPayload `json:"attributes"`
	Enums      []string      `json:"enums,omitempty"`
	Digest     string        `json:"digest"`
}

// enumPayload is the published form of an enum.
type enumPayload struct {
	Key      string            `json:"key"`
	Width    int               `json:"width"`
	Variants map[string]string `json:"variants"` // "0x00" -> name
}

func buildTopic(prefix string) string { return prefix + "/build" }

func clusterTopic(prefix string, c *zcl.Cluster) string {
	return prefix + "/clusters/" + c.Namespace + "/" + c.Name
}

func enumTopic(prefix string, e *zcl.Enum) string {
	return prefix + "/enums/" + strings.ReplaceAll(e.Key(), ".", "/")
}

// buildStateMessage reports a build attempt, successful or not.
func buildStateMessage(prefix string, res *builder.BuildResult) message {
	return message{Topic: buildTopic(prefix), Payload: mustJSON(res)}
}

// buildCatalogMessages returns one message per cluster and enum of a
// successful build, followed by deletions for topics of the previous
// publication that no longer exist.
func buildCatalogMessages(prefix string, res *builder.BuildResult, previous map[string]bool) ([]message, map[string]bool) {
	cat := res.Catalog
	digest := ""
	if res.Info != nil {
		digest = res.Info.Digest
	}

	var msgs []message
	current := make(map[string]bool)
	add := func(topic string, v any) {
		current[topic] = true
		msgs = append(msgs, message{Topic: topic, Payload: mustJSON(v)})
	}

	for i := range cat.Clusters {
		c := &cat.Clusters[i]
		add(clusterTopic(prefix, c), newClusterPayload(c, digest))
	}

	enums := cat.Enums()
	keys := make([]string, 0, len(enums))
	for k := range enums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := enums[k]
		p := enumPayload{Key: k, Width: e.Width, Variants: make(map[string]string, len(e.Variants))}
		for _, v := range e.Variants {
			p.Variants[fmt.Sprintf("0x%0*X", e.Width/4, v.Value)] = v.Name
		}
		add(enumTopic(prefix, e), p)
	}

	var stale []string
	for topic := range previous {
		if !current[topic] {
			stale = append(stale, topic)
		}
	}
	sort.Strings(stale)
	for _, topic := range stale {
		msgs = append(msgs, message{Topic: topic})
	}
	return msgs, current
}

func newClusterPayload(c *zcl.Cluster, digest string) clusterPayload {
	p := clusterPayload{
		Code:       fmt.Sprintf("0x%04X", c.Code),
		Name:       c.Name,
		Namespace:  c.Namespace,
		Attributes: make([]attrPayload, 0, len(c.Attributes)),
		Digest:     digest,
	}
	for i := range c.Attributes {
		a := &c.Attributes[i]
		ap := attrPayload{
			Code:      fmt.Sprintf("0x%04X", a.Code),
			Name:      a.Name,
			Type:      a.Type.Name,
			BaseType:  zcl.TypeName(a.Type.ID),
			Access:    accessString(a),
			Mandatory: a.Mandatory,
			Range:     string(a.Range.Kind),
		}
		if a.Default != nil {
			ap.Default = a.Default.String()
		}
		p.Attributes = append(p.Attributes, ap)
	}
	for _, e := range c.Enums {
		p.Enums = append(p.Enums, e.Key())
	}
	return p
}

// accessString renders access flags as written in source files, e.g. "RWP".
func accessString(a *zcl.Attribute) string {
	var b strings.Builder
	for _, f := range []struct {
		set bool
		c   byte
	}{{a.Readable, 'R'}, {a.Writable, 'W'}, {a.Reportable, 'P'}, {a.Scene, 'S'}} {
		if f.set {
			b.WriteByte(f.c)
		}
	}
	return b.String()
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
