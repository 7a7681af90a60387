package spec

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
)

// Ext is the file extension of spec files.
const Ext = ".txt"

// LoadDir parses every *.txt file in a directory, in name order.
// A missing or empty directory yields no files and no error.
func LoadDir(dir string, logger *slog.Logger) ([]*File, Diagnostics, error) {
	return LoadFS(os.DirFS(dir), logger)
}

// LoadFS parses every *.txt file at the root of fsys, in name order.
func LoadFS(fsys fs.FS, logger *slog.Logger) ([]*File, Diagnostics, error) {
	matches, err := fs.Glob(fsys, "*"+Ext)
	if err != nil {
		return nil, nil, fmt.Errorf("glob spec files: %w", err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		logger.Info("no spec files found")
		return nil, nil, nil
	}

	var (
		files []*File
		diags Diagnostics
	)
	for _, name := range matches {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", name, err)
		}
		file, ds := Parse(strings.TrimSuffix(path.Base(name), Ext), f)
		f.Close()

		files = append(files, file)
		diags = append(diags, ds...)
		logger.Debug("parsed spec file", "file", name,
			"clusters", len(file.Clusters), "globals", len(file.Globals), "enums", len(file.Enums),
			"diagnostics", len(ds))
	}

	logger.Info("spec files loaded", "files", len(files))
	return files, diags, nil
}
