// Package clusters embeds the standard ZCL catalog in spec form, one file
// per namespace.
package clusters

import "embed"

// FS holds the standard spec files at its root.
//
//go:embed *.txt
var FS embed.FS
