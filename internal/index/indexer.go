// Package index builds and incrementally maintains the inverted index of a
// knowledge base.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/extract"
	"github.com/Aman-CERP/kbsearch/internal/lock"
	"github.com/Aman-CERP/kbsearch/internal/scanner"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// buildLockFile guards a knowledge base's index directory across processes.
const buildLockFile = "build.lock"

// Mode selects how an index is built.
type Mode int

const (
	// ModeIncremental reuses the persisted index and only processes changes.
	ModeIncremental Mode = iota
	// ModeFull discards the persisted index and rebuilds from scratch.
	ModeFull
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "incremental"
}

// Config configures an Indexer.
type Config struct {
	// Workers is the number of concurrent extraction workers (0 = NumCPU).
	Workers int
	// MaxFileSize skips larger files (0 = scanner default).
	MaxFileSize int64
	// Extensions is the default extension allow-list.
	Extensions []string
	// Exclude are doublestar globs excluded from every knowledge base.
	Exclude []string
}

// Target identifies the knowledge base to build.
type Target struct {
	Name       string
	SourcePath string
	IndexDir   string
	// Extensions overrides Config.Extensions when non-empty.
	Extensions []string
}

// Options tunes a single build.
type Options struct {
	Mode     Mode
	Progress ProgressFunc
}

// FileError is a file that could not be indexed.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary reports the outcome of a build.
type Summary struct {
	Base      string        `json:"knowledge_base"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Removed   int           `json:"removed"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Errors    []FileError   `json:"errors,omitempty"`
	Documents int           `json:"documents"`
	Duration  time.Duration `json:"duration"`
	// Rebuilt is set when a corrupt index forced a full rebuild.
	Rebuilt bool `json:"rebuilt"`
}

// Changed reports whether the build modified the index.
func (s *Summary) Changed() bool {
	return s.Added+s.Updated+s.Removed > 0 || s.Skipped > 0 || s.Rebuilt
}

// Result is a completed build: its summary and the new index, already
// persisted and ready to publish.
type Result struct {
	Summary Summary
	Index   *store.InvertedIndex
	BuiltAt time.Time
}

// Indexer turns a knowledge base directory into a persisted InvertedIndex.
// It is safe for concurrent use on different knowledge bases. Builds of the
// same base are rejected across processes by a lock file; callers serialize
// them within a process.
type Indexer struct {
	cfg       Config
	tokenizer *store.Tokenizer
	extractor extract.TextExtractor
	scanner   *scanner.Scanner
	logger    *slog.Logger
	now       func() time.Time
}

// Dependencies are the collaborators of an Indexer.
type Dependencies struct {
	Tokenizer *store.Tokenizer
	Extractor extract.TextExtractor
	Logger    *slog.Logger
}

// New creates an Indexer.
func New(cfg Config, deps Dependencies) (*Indexer, error) {
	if deps.Tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if err := scanner.ValidatePatterns(cfg.Exclude); err != nil {
		return nil, kberrors.ConfigError("invalid indexer.exclude", err)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.WithMaxFileSize(cfg.MaxFileSize))
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Indexer{
		cfg:       cfg,
		tokenizer: deps.Tokenizer,
		extractor: deps.Extractor,
		scanner:   scanner.New(deps.Logger),
		logger:    deps.Logger,
		now:       time.Now,
	}, nil
}

// BuildOrUpdate brings the persisted index of target up to date with its
// source directory and returns the new index. On any error, including
// cancellation, the previously persisted index is left untouched.
func (ix *Indexer) BuildOrUpdate(ctx context.Context, target Target, opts Options) (*Result, error) {
	start := ix.now()
	progress := opts.Progress
	if progress == nil {
		progress = func(Progress) {}
	}

	buildLock := lock.New(filepath.Join(target.IndexDir, buildLockFile))
	acquired, err := buildLock.TryLock()
	if err != nil {
		return nil, kberrors.New(kberrors.ErrCodeIndexFailed, "failed to lock index", err)
	}
	if !acquired {
		return nil, kberrors.New(kberrors.ErrCodeIndexLocked,
			fmt.Sprintf("knowledge base %q is being indexed by another process", target.Name), nil).
			WithDetail("name", target.Name).
			WithSuggestion("wait for the other indexing run to finish and retry")
	}
	defer func() { _ = buildLock.Unlock() }()

	summary := Summary{Base: target.Name}
	mode := opts.Mode
	snapshotPath := store.SnapshotPath(target.IndexDir)

	ix.logger.Info("index_build_started",
		slog.String("name", target.Name),
		slog.String("path", target.SourcePath),
		slog.String("mode", mode.String()))

	idx, hadSnapshot, err := ix.startingIndex(ctx, snapshotPath, mode)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		summary.Rebuilt = true
		idx = store.NewInvertedIndex()
	}

	progress(Progress{Base: target.Name, Stage: StageScanning})
	files, err := ix.scanner.Collect(ctx, &scanner.ScanOptions{
		RootDir:         target.SourcePath,
		Extensions:      ix.extensions(target),
		ExcludePatterns: ix.cfg.Exclude,
		SkipDirs:        []string{target.IndexDir},
		MaxFileSize:     ix.cfg.MaxFileSize,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, kberrors.New(kberrors.ErrCodeIndexFailed,
			fmt.Sprintf("failed to scan %s", target.SourcePath), err)
	}

	// Documents whose files are gone.
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	for _, rec := range idx.Documents() {
		if !present[rec.RelPath] {
			idx.RemoveDocument(rec.DocID)
			summary.Removed++
		}
	}

	if err := ix.processFiles(ctx, target.Name, idx, files, &summary, progress); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builtAt := ix.now()
	if hadSnapshot && !summary.Changed() {
		ix.logger.Debug("index_unchanged", slog.String("name", target.Name))
	} else {
		progress(Progress{Base: target.Name, Stage: StageWriting, Current: idx.TotalDocuments(), Total: idx.TotalDocuments()})
		idx.BuiltAt = builtAt
		if err := store.SaveSnapshot(ctx, idx, snapshotPath); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, kberrors.New(kberrors.ErrCodeIndexFailed, "failed to write index", err).
				WithDetail("path", snapshotPath)
		}
	}

	summary.Documents = idx.TotalDocuments()
	summary.Duration = ix.now().Sub(start)

	ix.logger.Info("index_build_complete",
		slog.String("name", target.Name),
		slog.Int("added", summary.Added),
		slog.Int("updated", summary.Updated),
		slog.Int("removed", summary.Removed),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("skipped", summary.Skipped),
		slog.Int("documents", summary.Documents),
		slog.Bool("rebuilt", summary.Rebuilt),
		slog.Int64("duration_ms", summary.Duration.Milliseconds()))

	return &Result{Summary: summary, Index: idx, BuiltAt: builtAt}, nil
}

// startingIndex returns the index the build mutates. A nil index with a nil
// error means the previous snapshot was corrupt and the build is a rebuild.
func (ix *Indexer) startingIndex(ctx context.Context, path string, mode Mode) (*store.InvertedIndex, bool, error) {
	if mode == ModeFull {
		return store.NewInvertedIndex(), false, nil
	}

	prev, err := store.LoadSnapshot(ctx, path)
	switch {
	case err == nil:
		return prev, true, nil
	case errors.Is(err, store.ErrNoSnapshot):
		return store.NewInvertedIndex(), false, nil
	case store.IsCorrupt(err):
		ix.logger.Warn("index_corrupt_rebuilding",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false, nil
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	default:
		return nil, false, kberrors.New(kberrors.ErrCodeIndexFailed, "failed to load index", err).
			WithDetail("path", path)
	}
}

func (ix *Indexer) extensions(target Target) []string {
	if len(target.Extensions) > 0 {
		return target.Extensions
	}
	return ix.cfg.Extensions
}

// fileOutcome classifies a processed file.
type fileOutcome int

const (
	outcomeUnchanged fileOutcome = iota
	outcomeIndexed
	outcomeSkipped
)

// fileResult is produced by a worker and consumed by the merger.
type fileResult struct {
	seq     int
	file    *scanner.FileInfo
	outcome fileOutcome
	hash    string
	doc     *extract.Document
	stats   []store.TermStat
	length  int
	err     error
}

// processFiles extracts and tokenizes files on a worker pool and merges the
// results into idx on the calling goroutine, in file order, so docIds are
// assigned deterministically.
func (ix *Indexer) processFiles(ctx context.Context, base string, idx *store.InvertedIndex, files []*scanner.FileInfo, summary *Summary, progress ProgressFunc) error {
	// Workers only read this copy; the merger owns idx.
	known := make(map[string]string, idx.TotalDocuments())
	for _, rec := range idx.Documents() {
		known[rec.RelPath] = rec.ContentHash
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	out := make(chan *fileResult, ix.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < ix.cfg.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				res, err := ix.processFile(gctx, files[i], known)
				if err != nil {
					return err
				}
				res.seq = i
				select {
				case out <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var waitErr error
	go func() {
		waitErr = g.Wait()
		close(out)
	}()

	var mergeErr error
	pending := make(map[int]*fileResult)
	next, done := 0, 0
	for res := range out {
		if mergeErr != nil {
			continue
		}
		pending[res.seq] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			done++
			if err := ix.merge(idx, r, summary); err != nil {
				mergeErr = err
				cancel()
				break
			}
			progress(Progress{Base: base, Stage: StageExtracting, Current: done, Total: len(files), Path: r.file.Path})
		}
	}

	if mergeErr != nil {
		return kberrors.New(kberrors.ErrCodeIndexFailed, "failed to update index", mergeErr)
	}
	if waitErr != nil {
		return waitErr
	}
	return nil
}

// processFile hashes a file and, when its content is new or changed,
// extracts and tokenizes it. Only context errors are returned as errors;
// per-file problems are reported in the result.
func (ix *Indexer) processFile(ctx context.Context, file *scanner.FileInfo, known map[string]string) (*fileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &fileResult{file: file}

	hash, err := hashFile(file.AbsPath)
	if err != nil {
		res.outcome = outcomeSkipped
		res.err = kberrors.ExtractionError(file.Path, err)
		return res, nil
	}
	res.hash = hash

	if prev, ok := known[file.Path]; ok && prev == hash {
		res.outcome = outcomeUnchanged
		return res, nil
	}

	doc, err := ix.extractor.Extract(ctx, file.AbsPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.outcome = outcomeSkipped
		res.err = err
		return res, nil
	}

	tokens := ix.tokenizer.Analyze(doc.Text)
	res.outcome = outcomeIndexed
	res.doc = doc
	res.stats = store.TermStats(tokens)
	res.length = len(tokens)
	return res, nil
}

// merge applies one file result to idx. A changed file is removed and
// re-added under a fresh docId, like a new file.
func (ix *Indexer) merge(idx *store.InvertedIndex, r *fileResult, summary *Summary) error {
	existing, exists := idx.DocumentByPath(r.file.Path)

	switch r.outcome {
	case outcomeUnchanged:
		summary.Unchanged++
		return nil

	case outcomeSkipped:
		summary.Skipped++
		summary.Errors = append(summary.Errors, FileError{Path: r.file.Path, Error: r.err.Error()})
		ix.logger.Warn("extraction_failed",
			slog.String("path", r.file.Path),
			slog.String("error", r.err.Error()))
		if exists {
			// The stale text would no longer match the file.
			idx.RemoveDocument(existing.DocID)
		}
		return nil
	}

	rec := store.DocumentRecord{
		RelPath:     r.file.Path,
		ContentHash: r.hash,
		ModTime:     r.file.ModTime,
		Size:        r.file.Size,
		Length:      r.length,
		Title:       r.doc.Title,
		Content:     r.doc.Text,
	}
	if exists {
		idx.RemoveDocument(existing.DocID)
		summary.Updated++
	} else {
		summary.Added++
	}
	rec.DocID = idx.AllocateDocID()
	return idx.AddDocument(rec, r.stats)
}

// hashFile returns the SHA-256 of the file contents in hex.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
