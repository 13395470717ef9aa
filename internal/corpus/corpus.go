// Package corpus loads decompiled Java sources from a directory tree.
// Each entry carries a stable root-relative path and the full source text;
// the recovery engine never touches the filesystem after loading.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Entry is one decompiled source unit, usually a single obfuscated class.
type Entry struct {
	Path   string // relative to the corpus root
	Source []byte
}

// Stem returns the entry's file name without directory or extension. The
// decompiler names files after the class they hold, so this is the
// obfuscated class name of last resort.
func (e Entry) Stem() string {
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultMaxFileSize caps how large a single decompiled file may be.
// Pathological corpus entries beyond this are skipped, not truncated.
const DefaultMaxFileSize = 1_000_000

// Options controls corpus loading.
type Options struct {
	MaxFileSize int // bytes; 0 means DefaultMaxFileSize
}

// skipDirs are directories that never contain decompiled class sources.
var skipDirs = map[string]struct{}{
	".git":     {},
	".hg":      {},
	".svn":     {},
	"res":      {},
	"assets":   {},
	"META-INF": {},
	"build":    {},
	"dist":     {},
}

// Load discovers and reads all .java entries under root, honoring a
// .gitignore at the root when present. Entries are sorted by path so every
// later pass sees a deterministic order.
func Load(root string, opts Options) ([]Entry, error) {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	gi := loadGitignore(root)

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if filepath.Ext(name) != ".java" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		fi, err := d.Info()
		if err == nil && fi.Size() > int64(maxSize) {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		entries = append(entries, Entry{Path: filepath.ToSlash(rel), Source: source})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
