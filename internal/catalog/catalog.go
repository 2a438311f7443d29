// Package catalog discovers store files under one or more root directories.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// DefaultNamePattern matches files with the store extension.
const DefaultNamePattern = `.+\.objdb`

// VersionUnknown is reported for every database; the engine does not expose
// a schema version through this path.
const VersionUnknown = "N/A"

// Descriptor identifies one discovered database file.
type Descriptor struct {
	ID      string `json:"id"`
	Domain  string `json:"domain"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Catalog lists candidate database files.
type Catalog struct {
	roots   []string
	pattern *regexp.Regexp
	domain  string
}

// New creates a Catalog. The pattern must match a whole file name; an empty
// pattern uses DefaultNamePattern.
func New(roots []string, pattern, domain string) (*Catalog, error) {
	if pattern == "" {
		pattern = DefaultNamePattern
	}
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &Catalog{roots: roots, pattern: re, domain: domain}, nil
}

// CompilePattern compiles a file name pattern anchored at both ends.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid database name pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Roots returns the configured root directories.
func (c *Catalog) Roots() []string {
	return c.roots
}

// Files walks every root and returns matching files, sorted and deduplicated.
func (c *Catalog) Files() []string {
	seen := make(map[string]struct{})
	var files []string
	for _, root := range c.roots {
		for _, f := range c.ListDatabaseFiles(root) {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files
}

// Descriptors returns a Descriptor for every file Files returns.
func (c *Catalog) Descriptors() []Descriptor {
	files := c.Files()
	out := make([]Descriptor, 0, len(files))
	for _, f := range files {
		out = append(out, c.Describe(f))
	}
	return out
}

// Describe builds the Descriptor for a file path.
func (c *Catalog) Describe(path string) Descriptor {
	return Descriptor{
		ID:      path,
		Domain:  c.domain,
		Name:    filepath.Base(path),
		Version: VersionUnknown,
	}
}

// ListDatabaseFiles recursively lists regular, readable files under root
// whose name matches the pattern. A symlinked root is walked through its
// target and symlinked files count when they point at regular files; links
// to directories below the root are not followed. Unreadable directories are
// skipped; an unreadable root yields an empty result.
func (c *Catalog) ListDatabaseFiles(root string) []string {
	walkRoot := root
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(root)
		if err != nil {
			return nil
		}
		walkRoot = target
	}

	var files []string
	_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != walkRoot {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !c.accept(path, d) {
			return nil
		}
		if walkRoot != root {
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return nil
			}
			path = filepath.Join(root, rel)
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files
}

func (c *Catalog) accept(path string, d fs.DirEntry) bool {
	if !c.pattern.MatchString(d.Name()) {
		return false
	}
	mode := d.Type()
	if mode&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		mode = info.Mode()
	}
	if !mode.IsRegular() {
		return false
	}
	return readable(path)
}

// readable reports whether the current process can open path for reading.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
