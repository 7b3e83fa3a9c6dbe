package kbsearch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/kbsearch/internal/config"
	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/extract"
	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// Engine is a kbsearch instance bound to one configuration.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *registry.Registry
	tokenizer *store.Tokenizer
	indexer   *index.Indexer
	search    *search.Engine

	handles *lru.Cache[string, *handle]
	loads   singleflight.Group
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	extractor extract.TextExtractor
}

// WithLogger sets the logger used by the engine and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithExtractor replaces the default text extractor.
func WithExtractor(ex extract.TextExtractor) Option {
	return func(o *options) {
		o.extractor = ex
	}
}

// Open creates an Engine for cfg. The registry file is created on first write.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, kberrors.ConfigError("configuration is required", nil)
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	tokOpts := store.TokenizerOptions{MinTokenLength: cfg.Tokenizer.MinTokenLength}
	if cfg.Tokenizer.UserDict != "" {
		dict, err := store.LoadUserDictionary(cfg.Tokenizer.UserDict)
		if err != nil {
			return nil, kberrors.ConfigError("failed to load tokenizer.user_dict", err)
		}
		tokOpts.Dictionary = dict
	}
	tokenizer := store.NewTokenizer(tokOpts)

	if o.extractor == nil {
		o.extractor = extract.New(extract.WithMaxFileSize(cfg.Indexer.MaxFileSize))
	}
	ix, err := index.New(index.Config{
		Workers:     cfg.Indexer.Workers,
		MaxFileSize: cfg.Indexer.MaxFileSize,
		Extensions:  cfg.Indexer.Extensions,
		Exclude:     cfg.Indexer.Exclude,
	}, index.Dependencies{
		Tokenizer: tokenizer,
		Extractor: o.extractor,
		Logger:    o.logger,
	})
	if err != nil {
		return nil, err
	}

	handles, err := lru.New[string, *handle](cfg.Engine.MaxOpenIndexes)
	if err != nil {
		return nil, kberrors.ConfigError("invalid engine.max_open_indexes", err)
	}

	e := &Engine{
		cfg:       cfg,
		logger:    o.logger,
		tokenizer: tokenizer,
		indexer:   ix,
		handles:   handles,
	}

	reg, err := registry.Open(cfg.RegistryPath,
		registry.WithLogger(o.logger),
		registry.WithRemoveHook(e.dropIndex))
	if err != nil {
		return nil, err
	}
	e.registry = reg

	e.search = search.New(e, tokenizer, search.Config{
		BM25:         store.BM25Config{K1: cfg.BM25.K1, B: cfg.BM25.B},
		SnippetWidth: cfg.Search.SnippetWidth,
	}, o.logger)

	return e, nil
}

// Close releases the loaded indexes.
func (e *Engine) Close() error {
	e.handles.Purge()
	return nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Add registers a knowledge base. It is searchable once indexed.
func (e *Engine) Add(ctx context.Context, req registry.AddRequest) (*registry.KnowledgeBase, error) {
	return e.registry.Add(ctx, req)
}

// Remove unregisters a knowledge base and deletes its persisted index.
func (e *Engine) Remove(ctx context.Context, name string) error {
	return e.registry.Remove(ctx, name)
}

// Enable includes a knowledge base in searches over all bases.
func (e *Engine) Enable(ctx context.Context, name string) error {
	return e.registry.Enable(ctx, name)
}

// Disable excludes a knowledge base from searches over all bases.
func (e *Engine) Disable(ctx context.Context, name string) error {
	return e.registry.Disable(ctx, name)
}

// List returns every registered knowledge base in insertion order.
func (e *Engine) List(ctx context.Context) ([]registry.KnowledgeBase, error) {
	return e.registry.List(ctx)
}

// Index builds or updates one knowledge base, or every enabled base when
// req.Name is empty. When indexing all bases a failure does not stop the
// others; the summaries of the successful builds are returned alongside the
// joined errors.
func (e *Engine) Index(ctx context.Context, req IndexRequest) ([]index.Summary, error) {
	if req.Name != "" {
		summary, err := e.indexOne(ctx, req.Name, req)
		if err != nil {
			return nil, err
		}
		return []index.Summary{*summary}, nil
	}

	bases, err := e.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	var summaries []index.Summary
	var errs []error
	for _, kb := range bases {
		if !kb.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summary, err := e.indexOne(ctx, kb.Name, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kb.Name, err))
			continue
		}
		summaries = append(summaries, *summary)
	}
	return summaries, errors.Join(errs...)
}

func (e *Engine) indexOne(ctx context.Context, name string, req IndexRequest) (*index.Summary, error) {
	unlock := e.registry.LockName(name)
	defer unlock()

	// Read under the name lock so a concurrent Remove cannot slip in.
	kb, err := e.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	mode := index.ModeIncremental
	if req.Force {
		mode = index.ModeFull
	}
	res, err := e.indexer.BuildOrUpdate(ctx, index.Target{
		Name:       kb.Name,
		SourcePath: kb.Path,
		IndexDir:   e.cfg.IndexDir(kb.Name),
		Extensions: kb.Extensions,
	}, index.Options{Mode: mode, Progress: req.Progress})
	if err != nil {
		return nil, err
	}

	e.publish(kb.Name, res.Index)

	if err := e.registry.RecordIndexed(ctx, kb.Name, res.BuiltAt, res.Summary.Documents); err != nil {
		return nil, fmt.Errorf("failed to record index build: %w", err)
	}
	return &res.Summary, nil
}

// Search runs a query. A zero req.Threshold takes search.threshold from the
// configuration.
func (e *Engine) Search(ctx context.Context, req search.Request) (*SearchResponse, error) {
	if req.Threshold == 0 {
		req.Threshold = e.cfg.Search.Threshold
	}
	hits, err := e.search.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Query:        req.Query,
		TotalResults: len(hits),
		Results:      hits,
	}, nil
}

// Status summarizes every registered knowledge base.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	bases, err := e.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		TotalKnowledgeBases: len(bases),
		KnowledgeBases:      make([]BaseStatus, 0, len(bases)),
	}
	for _, kb := range bases {
		if kb.Enabled {
			st.Enabled++
		} else {
			st.Disabled++
		}
		st.TotalDocuments += kb.DocumentCount
		st.KnowledgeBases = append(st.KnowledgeBases, BaseStatus{
			Name:          kb.Name,
			Enabled:       kb.Enabled,
			Documents:     kb.DocumentCount,
			Path:          kb.Path,
			LastIndexedAt: kb.LastIndexedAt,
		})
	}
	return st, nil
}

// Info describes one knowledge base and its persisted index. A corrupt index
// is reported in the result rather than as an error.
func (e *Engine) Info(ctx context.Context, name string) (*Info, error) {
	kb, err := e.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Name:          kb.Name,
		Path:          kb.Path,
		Description:   kb.Description,
		Enabled:       kb.Enabled,
		Extensions:    kb.Extensions,
		CreatedAt:     kb.CreatedAt,
		LastIndexedAt: kb.LastIndexedAt,
		IndexDir:      e.cfg.IndexDir(kb.Name),
		State:         IndexReady,
	}

	idx, err := e.Snapshot(ctx, *kb)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		info.State = IndexNotIndexed
		return info, nil
	case errors.Is(err, kberrors.ErrCorruptIndex):
		info.State = IndexCorrupt
		info.Problem = err.Error()
	case err != nil:
		return nil, err
	default:
		info.Stats = idx.Stats()
		builtAt := idx.BuiltAt
		info.BuiltAt = &builtAt
	}

	if fi, err := os.Stat(store.SnapshotPath(info.IndexDir)); err == nil {
		info.IndexSize = fi.Size()
	}
	return info, nil
}

// dropIndex is the registry removal hook.
func (e *Engine) dropIndex(_ context.Context, kb registry.KnowledgeBase) error {
	e.handles.Remove(kb.Name)
	dir := e.cfg.IndexDir(kb.Name)
	if err := store.RemoveSnapshot(dir); err != nil {
		return fmt.Errorf("failed to delete index %s: %w", dir, err)
	}
	e.logger.Info("index_deleted", slog.String("name", kb.Name), slog.String("dir", dir))
	return nil
}

// snapshotInfo returns the stat of the persisted index, or ErrNoSnapshot.
func (e *Engine) snapshotInfo(name string) (string, fs.FileInfo, error) {
	path := store.SnapshotPath(e.cfg.IndexDir(name))
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, nil, store.ErrNoSnapshot
	}
	if err != nil {
		return path, nil, kberrors.New(kberrors.ErrCodeSearchFailed,
			fmt.Sprintf("failed to open index %s", filepath.Dir(path)), err)
	}
	return path, fi, nil
}

var _ search.Source = (*Engine)(nil)

// KnowledgeBases implements search.Source.
func (e *Engine) KnowledgeBases(ctx context.Context) ([]registry.KnowledgeBase, error) {
	return e.registry.List(ctx)
}
