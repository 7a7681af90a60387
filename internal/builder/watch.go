package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"zclc/internal/spec"
)

const defaultDebounce = 250 * time.Millisecond

// Watch rebuilds whenever the spec files in SpecDir change. Bursts of
// file events are coalesced by the debounce delay, and a rebuild only
// happens when the directory fingerprint differs from the last one seen,
// so touching a file or saving it unchanged costs nothing. It returns when
// ctx is cancelled.
func (b *Builder) Watch(ctx context.Context) error {
	if b.cfg.SpecDir == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	debounce := b.cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(b.cfg.SpecDir); err != nil {
		return fmt.Errorf("watch %s: %w", b.cfg.SpecDir, err)
	}

	last := Fingerprint(os.DirFS(b.cfg.SpecDir))
	b.logger.Info("watching spec dir", "dir", b.cfg.SpecDir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != spec.Ext || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("spec watcher", "err", err)

		case <-timer.C:
			fp := Fingerprint(os.DirFS(b.cfg.SpecDir))
			if fp == last {
				continue
			}
			last = fp
			b.logger.Info("spec files changed, rebuilding")
			// A failed build is reported through events and Last.
			_, _ = b.Build(ctx)
		}
	}
}

// Fingerprint hashes the names and contents of the spec files at the root
// of fsys. Unreadable files hash by name only.
func Fingerprint(fsys fs.FS) string {
	names, _ := fs.Glob(fsys, "*"+spec.Ext)
	sort.Strings(names)
	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		if data, err := fs.ReadFile(fsys, name); err == nil {
			h.Write(data)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
