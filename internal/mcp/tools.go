package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"the search query to execute"`
	KnowledgeBases []string `json:"knowledge_bases,omitempty" jsonschema:"knowledge bases to search, default all enabled"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Dirs           []string `json:"dirs,omitempty" jsonschema:"keep results whose path contains any of these directories"`
	WithContent    bool     `json:"with_content,omitempty" jsonschema:"include the full document text"`
	Highlights     bool     `json:"highlights,omitempty" jsonschema:"include up to 3 passages, one per matched query term"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query        string               `json:"query"`
	TotalResults int                  `json:"total_results"`
	Results      []SearchResultOutput `json:"results" jsonschema:"ranked results, best first"`
}

// SearchResultOutput is a single ranked document.
type SearchResultOutput struct {
	KnowledgeBase string   `json:"knowledge_base" jsonschema:"knowledge base the document belongs to"`
	Path          string   `json:"path" jsonschema:"document path relative to the knowledge base root"`
	Title         string   `json:"title"`
	Score         float64  `json:"score" jsonschema:"BM25 relevance score, higher is better"`
	Snippet       string   `json:"snippet,omitempty" jsonschema:"text around the first match"`
	Highlights    []string `json:"highlights,omitempty" jsonschema:"passages around each matched query term"`
	Content       string   `json:"content,omitempty"`
}

// ListInput defines the input schema for the list_knowledge_bases tool (no parameters).
type ListInput struct{}

// ListOutput defines the output schema for the list_knowledge_bases tool.
type ListOutput struct {
	KnowledgeBases []KnowledgeBaseOutput `json:"knowledge_bases"`
}

// KnowledgeBaseOutput describes one registered knowledge base.
type KnowledgeBaseOutput struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Enabled       bool   `json:"enabled"`
	Documents     int    `json:"documents"`
	LastIndexedAt string `json:"last_indexed_at,omitempty" jsonschema:"RFC 3339 time of the last build, empty if never indexed"`
}

// StatusInput defines the input schema for the status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the status tool.
type StatusOutput struct {
	TotalKnowledgeBases int                   `json:"total_knowledge_bases"`
	Enabled             int                   `json:"enabled"`
	Disabled            int                   `json:"disabled"`
	TotalDocuments      int                   `json:"total_documents"`
	KnowledgeBases      []KnowledgeBaseOutput `json:"knowledge_bases"`
}
