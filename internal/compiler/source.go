package compiler

import (
	"fmt"
	"io/fs"
	"log/slog"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// CompileFS loads the spec files of every source and compiles them
// together. A file in a later source replaces a file of the same name in an
// earlier one. Parse and compile diagnostics are returned together; any
// fatal one fails the build.
func CompileFS(logger *slog.Logger, sources ...fs.FS) (*zcl.Catalog, spec.Diagnostics, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		files []*spec.File
		diags spec.Diagnostics
		index = make(map[string]int)
	)
	for _, src := range sources {
		loaded, ds, err := spec.LoadFS(src, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load specs: %w", err)
		}
		diags = append(diags, ds...)
		for _, f := range loaded {
			if i, ok := index[f.Name]; ok {
				logger.Info("spec file overrides earlier source", "namespace", f.Name)
				files[i] = f
				continue
			}
			index[f.Name] = len(files)
			files = append(files, f)
		}
	}

	cat, cds, _ := Compile(files, logger)
	diags = append(diags, cds...)
	if diags.HasFatal() {
		return nil, diags, fmt.Errorf("compile: %w", diags.Err())
	}
	return cat, diags, nil
}
