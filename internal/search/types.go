// Package search answers ranked queries over one or more knowledge bases.
//
// Each knowledge base is searched against its current published index,
// concurrently, and the hits are merged by raw BM25 score.
package search

import (
	"context"

	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// DefaultLimit is the limit callers use when the user gives none.
const DefaultLimit = 10

// DefaultSnippetWidth is the snippet length in characters.
const DefaultSnippetWidth = 200

// Request is a search query.
type Request struct {
	// Query is the free-text query. Blank queries are rejected.
	Query string

	// Bases restricts the search to the named knowledge bases. Empty means
	// every enabled knowledge base. Naming a disabled base is an error.
	Bases []string

	// Limit is the maximum number of hits. It must be positive; callers
	// fill in DefaultLimit or the configured default themselves.
	Limit int

	// IncludeSnippet adds a text window around the first match.
	IncludeSnippet bool

	// Highlights adds up to MaxHighlights text windows, one per distinct
	// query term found in the document.
	Highlights bool

	// WithContent adds the full extracted text of each hit.
	WithContent bool

	// Dirs keeps hits whose relative path contains any of these fragments.
	Dirs []string

	// Threshold drops hits scoring below it.
	Threshold float64
}

// Hit is one ranked document.
type Hit struct {
	KnowledgeBase string   `json:"knowledge_base"`
	DocID         int64    `json:"-"`
	Path          string   `json:"path"`
	Title         string   `json:"title"`
	Score         float64  `json:"score"`
	Snippet       string   `json:"snippet,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
	Content       string   `json:"content,omitempty"`
}

// Source supplies knowledge bases and their published indexes.
type Source interface {
	// KnowledgeBases lists every registered knowledge base.
	KnowledgeBases(ctx context.Context) ([]registry.KnowledgeBase, error)

	// Snapshot returns the published index of a knowledge base. It returns
	// store.ErrNoSnapshot for a base that was never indexed and a
	// corrupt-index error for a damaged one.
	Snapshot(ctx context.Context, kb registry.KnowledgeBase) (*store.InvertedIndex, error)
}
