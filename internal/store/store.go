package store

import (
	"errors"

	"zclc/internal/zcl"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for compiled catalogs.
type Store interface {
	// SaveCatalog replaces the current catalog and appends info to the
	// build history in a single transaction.
	SaveCatalog(cat *zcl.Catalog, info *BuildInfo) error
	// LoadCatalog returns the current catalog and the build that produced it.
	LoadCatalog() (*zcl.Catalog, *BuildInfo, error)

	// Builds returns up to limit history entries, newest first. A limit
	// of zero or less returns every entry.
	Builds(limit int) ([]*BuildInfo, error)
	// PruneBuilds drops all but the newest keep history entries.
	PruneBuilds(keep int) error

	Close() error
}
