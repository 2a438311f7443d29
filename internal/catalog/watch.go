package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch blocks until ctx is done, calling announce once for every matching
// file that appears under the catalog's roots after Watch starts. Files that
// already exist when Watch is called are never announced.
func (c *Catalog) Watch(ctx context.Context, logger *slog.Logger, announce func(Descriptor)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	seen := make(map[string]struct{})
	for _, f := range c.Files() {
		seen[f] = struct{}{}
	}

	for _, root := range c.roots {
		if err := watchDir(watcher, root); err != nil {
			logger.Warn("cannot watch root", "root", root, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Lstat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := watchDir(watcher, event.Name); err != nil {
						logger.Debug("cannot watch directory", "path", event.Name, "error", err)
					}
					for _, f := range c.ListDatabaseFiles(event.Name) {
						c.announceOnce(f, seen, logger, announce)
					}
				}
				continue
			}
			if c.accept(event.Name, fs.FileInfoToDirEntry(info)) {
				c.announceOnce(event.Name, seen, logger, announce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func (c *Catalog) announceOnce(path string, seen map[string]struct{}, logger *slog.Logger, announce func(Descriptor)) {
	if _, ok := seen[path]; ok {
		return
	}
	seen[path] = struct{}{}
	logger.Info("new database file", "path", path)
	announce(c.Describe(path))
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return fs.SkipDir
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
