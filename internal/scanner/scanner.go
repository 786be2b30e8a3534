// Package scanner discovers PHP source files below a set of roots. It
// respects .phpflowignore files with gitignore-style patterns.
package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo describes a discovered file.
type FileInfo struct {
	Path     string // Relative path from the scan root, slash separated
	FullPath string // Absolute path
	Language string
	Size     int64
}

// Options configures the scanner behavior.
type Options struct {
	// Extensions lists the file extensions to collect. Empty collects every
	// extension DetectLanguage recognises.
	Extensions      []string
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names never descended into
	IgnoreFileName  string   // Name of the ignore file
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Extensions:     []string{".php"},
		SkipHidden:     true,
		IgnoreFileName: ".phpflowignore",
		DefaultExcludes: []string{
			"vendor",
			"node_modules",
			".git",
			".hg",
			".svn",
			".idea",
			".vscode",
			".phpflow",
		},
	}
}

// Scanner walks directory trees.
type Scanner struct {
	opts Options
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

func (s *Scanner) wants(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if len(s.opts.Extensions) == 0 {
		return DetectLanguage(ext) != ""
	}
	for _, e := range s.opts.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(name string) bool {
	for _, ex := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}

// Scan returns the matching files below root, sorted by path. A root that
// names a file is returned as is, whatever its extension.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	st, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !st.IsDir() {
		return []FileInfo{{
			Path:     filepath.ToSlash(filepath.Base(absRoot)),
			FullPath: absRoot,
			Language: DetectLanguage(filepath.Ext(absRoot)),
			Size:     st.Size(),
		}}, nil
	}

	var rules []ignoreRules
	if set, err := s.loadIgnoreRules(absRoot, ""); err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	} else if set != nil {
		rules = append(rules, *set)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.excluded(name) || ignored(rules, rel, true) {
				return filepath.SkipDir
			}
			if set, err := s.loadIgnoreRules(path, rel); err == nil && set != nil {
				rules = append(rules, *set)
			}
			return nil
		}

		// Symlinks and other special files are not followed.
		if !d.Type().IsRegular() || !s.wants(name) || ignored(rules, rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Language: DetectLanguage(filepath.Ext(name)),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// loadIgnoreRules reads the ignore file in dir, if any. base is dir
// relative to the scan root.
func (s *Scanner) loadIgnoreRules(dir, base string) (*ignoreRules, error) {
	if s.opts.IgnoreFileName == "" {
		return nil, nil
	}
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	set := &ignoreRules{base: base}
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set.patterns = append(set.patterns, ParseIgnorePattern(line))
	}
	return set, sc.Err()
}

// ScanAll scans every root and returns the files in root order. Files
// reached from several roots are returned once.
func (s *Scanner) ScanAll(ctx context.Context, roots []string) ([]FileInfo, error) {
	seen := make(map[string]bool)
	var out []FileInfo
	for _, root := range roots {
		files, err := s.Scan(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f.FullPath] {
				seen[f.FullPath] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}
