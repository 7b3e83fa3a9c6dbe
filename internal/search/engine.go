package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// Config configures an Engine.
type Config struct {
	BM25         store.BM25Config
	SnippetWidth int
}

// Engine is the query engine. It is safe for concurrent use and never
// blocks on index builds.
type Engine struct {
	source    Source
	tokenizer *store.Tokenizer
	config    Config
	logger    *slog.Logger
}

// New creates an Engine.
func New(source Source, tokenizer *store.Tokenizer, cfg Config, logger *slog.Logger) *Engine {
	if cfg.BM25 == (store.BM25Config{}) {
		cfg.BM25 = store.DefaultBM25Config()
	}
	if cfg.SnippetWidth <= 0 {
		cfg.SnippetWidth = DefaultSnippetWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, tokenizer: tokenizer, config: cfg, logger: logger}
}

// Search runs a query and returns hits ordered by descending score, ties
// broken by knowledge base name and then path.
func (e *Engine) Search(ctx context.Context, req Request) ([]Hit, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, kberrors.InvalidQueryError("query must not be empty")
	}
	if req.Limit <= 0 {
		return nil, kberrors.InvalidQueryError(fmt.Sprintf("limit must be positive, got %d", req.Limit))
	}
	limit := req.Limit

	bases, err := e.resolveBases(ctx, req.Bases)
	if err != nil {
		return nil, err
	}

	terms := e.tokenizer.Tokenize(req.Query)
	if len(terms) == 0 || len(bases) == 0 {
		return []Hit{}, nil
	}

	perBase := make([][]Hit, len(bases))
	g, gctx := errgroup.WithContext(ctx)
	for i, kb := range bases {
		g.Go(func() error {
			hits, err := e.searchBase(gctx, kb, terms, req, limit)
			if err != nil {
				return err
			}
			perBase[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var hits []Hit
	for _, h := range perBase {
		hits = append(hits, h...)
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []Hit{}
	}

	e.logger.Debug("search_complete",
		slog.String("query", req.Query),
		slog.Int("bases", len(bases)),
		slog.Int("results", len(hits)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return hits, nil
}

// resolveBases returns the knowledge bases a request targets.
func (e *Engine) resolveBases(ctx context.Context, names []string) ([]registry.KnowledgeBase, error) {
	all, err := e.source.KnowledgeBases(ctx)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		var enabled []registry.KnowledgeBase
		for _, kb := range all {
			if kb.Enabled {
				enabled = append(enabled, kb)
			}
		}
		return enabled, nil
	}

	byName := make(map[string]registry.KnowledgeBase, len(all))
	for _, kb := range all {
		byName[kb.Name] = kb
	}
	seen := make(map[string]bool, len(names))
	var out []registry.KnowledgeBase
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		kb, ok := byName[name]
		if !ok {
			return nil, kberrors.NotFoundError(name)
		}
		if !kb.Enabled {
			return nil, kberrors.DisabledBaseError(name)
		}
		out = append(out, kb)
	}
	return out, nil
}

// searchBase scores one knowledge base. At most limit hits are kept, since
// no hit beyond a base's own top limit can reach the merged top limit.
func (e *Engine) searchBase(ctx context.Context, kb registry.KnowledgeBase, terms []string, req Request, limit int) ([]Hit, error) {
	idx, err := e.source.Snapshot(ctx, kb)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	scores := e.config.BM25.ScoreAll(idx, terms)
	hits := make([]Hit, 0, len(scores))
	for docID, score := range scores {
		if score < req.Threshold {
			continue
		}
		rec, ok := idx.Document(docID)
		if !ok || !matchesDirs(rec.RelPath, req.Dirs) {
			continue
		}
		hits = append(hits, Hit{
			KnowledgeBase: kb.Name,
			DocID:         docID,
			Path:          rec.RelPath,
			Title:         rec.Title,
			Score:         score,
		})
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	for i := range hits {
		rec, _ := idx.Document(hits[i].DocID)
		offsets := termOffsets(idx, terms, rec.DocID)
		if req.IncludeSnippet {
			first := -1
			if len(offsets) > 0 {
				first = slices.Min(offsets)
			}
			hits[i].Snippet = Snippet(rec.Content, first, req.Query, e.config.SnippetWidth)
		}
		if req.Highlights {
			hits[i].Highlights = Highlights(rec.Content, offsets, e.config.SnippetWidth)
		}
		if req.WithContent {
			hits[i].Content = rec.Content
		}
	}
	return hits, nil
}

func sortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := strings.Compare(a.KnowledgeBase, b.KnowledgeBase); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
}

// matchesDirs reports whether relPath contains any of dirs.
func matchesDirs(relPath string, dirs []string) bool {
	if len(dirs) == 0 {
		return true
	}
	for _, d := range dirs {
		d = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(d), "\\", "/"), "./")
		if d == "" || strings.Contains(relPath, d) {
			return true
		}
	}
	return false
}

// termOffsets returns the first byte offset in the document of each
// distinct query term it contains, in query order.
func termOffsets(idx *store.InvertedIndex, terms []string, docID int64) []int {
	var offsets []int
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		postings := idx.Postings(term)
		i, found := slices.BinarySearchFunc(postings, docID, func(p store.Posting, id int64) int {
			return cmp.Compare(p.DocID, id)
		})
		if found {
			offsets = append(offsets, postings[i].FirstOffset)
		}
	}
	return offsets
}
