package kbsearch

import (
	"time"

	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// IndexRequest selects the knowledge bases to index.
type IndexRequest struct {
	// Name is the knowledge base to index. Empty indexes every enabled base.
	Name string
	// Force discards the persisted index and rebuilds from scratch.
	Force bool
	// Progress receives build progress events.
	Progress index.ProgressFunc
}

// SearchResponse is the result of a query.
type SearchResponse struct {
	Query        string       `json:"query"`
	TotalResults int          `json:"total_results"`
	Results      []search.Hit `json:"results"`
}

// BaseStatus is one knowledge base in a Status report.
type BaseStatus struct {
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	Documents     int        `json:"documents"`
	Path          string     `json:"path"`
	LastIndexedAt *time.Time `json:"last_indexed_at"`
}

// Status summarizes every registered knowledge base.
type Status struct {
	TotalKnowledgeBases int          `json:"total_knowledge_bases"`
	Enabled             int          `json:"enabled"`
	Disabled            int          `json:"disabled"`
	TotalDocuments      int          `json:"total_documents"`
	KnowledgeBases      []BaseStatus `json:"knowledge_bases"`
}

// IndexState describes the persisted index of a knowledge base.
type IndexState string

const (
	IndexReady      IndexState = "ready"
	IndexNotIndexed IndexState = "not_indexed"
	IndexCorrupt    IndexState = "corrupt"
)

// Info describes one knowledge base and its persisted index.
type Info struct {
	Name          string           `json:"name"`
	Path          string           `json:"path"`
	Description   string           `json:"description,omitempty"`
	Enabled       bool             `json:"enabled"`
	Extensions    []string         `json:"extensions,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	LastIndexedAt *time.Time       `json:"last_indexed_at"`
	State         IndexState       `json:"state"`
	Stats         store.IndexStats `json:"stats"`
	IndexDir      string           `json:"index_dir"`
	IndexSize     int64            `json:"index_size_bytes"`
	BuiltAt       *time.Time       `json:"built_at,omitempty"`
	// Problem explains a corrupt index.
	Problem string `json:"problem,omitempty"`
}
