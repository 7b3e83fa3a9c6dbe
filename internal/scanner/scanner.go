package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner discovers indexable files in a knowledge base directory.
type Scanner struct {
	logger *slog.Logger
}

// New creates a new Scanner instance.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan discovers all indexable files under opts.RootDir.
// It returns a channel of ScanResult that streams files as they are discovered.
// The channel is closed when scanning is complete. A canceled context stops
// the walk without an error result.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	w := &walk{
		scanner:    s,
		absRoot:    absRoot,
		opts:       opts,
		extensions: normalizeExtensions(opts.Extensions),
		maxSize:    opts.MaxFileSize,
	}
	if w.maxSize <= 0 {
		w.maxSize = DefaultMaxFileSize
	}
	for _, dir := range opts.SkipDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			w.skipDirs = append(w.skipDirs, abs)
		}
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		w.run(ctx, results)
	}()

	return results, nil
}

// Collect runs Scan and gathers every file. The first walk error, or the
// context error on cancellation, is returned.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) ([]*FileInfo, error) {
	results, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	var files []*FileInfo
	var firstErr error
	for r := range results {
		if r.Error != nil {
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		files = append(files, r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	slices.SortFunc(files, func(a, b *FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

type walk struct {
	scanner    *Scanner
	absRoot    string
	opts       *ScanOptions
	extensions map[string]bool
	skipDirs   []string
	maxSize    int64
}

func (w *walk) run(ctx context.Context, results chan<- ScanResult) {
	err := filepath.WalkDir(w.absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			w.scanner.logger.Debug("scan_entry_unreadable",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}

		relPath, err := filepath.Rel(w.absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.excludeDir(path, relPath, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !w.opts.FollowSymlinks {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if w.excludeFile(relPath, d.Name()) {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > w.maxSize {
			w.scanner.logger.Debug("scan_file_too_large",
				slog.String("path", relPath),
				slog.Int64("size", info.Size()))
			return nil
		}

		file := &FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// excludeDir reports whether a directory subtree is skipped.
func (w *walk) excludeDir(absPath, relPath, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, skip := range w.skipDirs {
		if absPath == skip {
			return true
		}
	}
	for _, excl := range defaultExcludeDirs {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return matchesAny(relPath, w.opts.ExcludePatterns) || matchesAny(relPath+"/", w.opts.ExcludePatterns)
}

// excludeFile reports whether a file is skipped.
func (w *walk) excludeFile(relPath, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if len(w.extensions) > 0 && !w.extensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	for _, pattern := range sensitiveFilePatterns {
		if ok, _ := doublestar.Match(pattern, strings.ToLower(name)); ok {
			return true
		}
	}
	return matchesAny(relPath, w.opts.ExcludePatterns)
}

// matchesAny checks relPath, and its base name, against doublestar patterns.
func matchesAny(relPath string, patterns []string) bool {
	base := relPath
	if i := strings.LastIndex(strings.TrimSuffix(relPath, "/"), "/"); i >= 0 {
		base = relPath[i+1:]
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns returns an error for the first malformed glob.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

// Directory names never descended into. Hidden directories are skipped
// separately.
var defaultExcludeDirs = []string{
	"node_modules",
	"vendor",
	"__pycache__",
	"site-packages",
}

// Sensitive file patterns that are never indexed, matched against the
// lowercase base name.
var sensitiveFilePatterns = []string{
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
}
