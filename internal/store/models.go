package store

import (
	"time"

	"zclc/internal/zcl"
)

// BuildInfo records one successful compilation.
type BuildInfo struct {
	Seq        uint64    `json:"seq"`
	Digest     string    `json:"digest"`
	Sources    []string  `json:"sources,omitempty"`
	Clusters   int       `json:"clusters"`
	Attributes int       `json:"attributes"`
	Enums      int       `json:"enums"`
	Warnings   int       `json:"warnings"`
	BuiltAt    time.Time `json:"built_at"`
}

// NewBuildInfo summarizes a catalog. Seq is assigned when the build is saved.
func NewBuildInfo(cat *zcl.Catalog, digest string, warnings int, sources []string) *BuildInfo {
	info := &BuildInfo{
		Digest:   digest,
		Sources:  sources,
		Clusters: len(cat.Clusters),
		Enums:    len(cat.Enums()),
		Warnings: warnings,
		BuiltAt:  time.Now().UTC(),
	}
	info.Attributes = len(cat.Globals)
	for _, c := range cat.Clusters {
		info.Attributes += len(c.Attributes)
	}
	return info
}
