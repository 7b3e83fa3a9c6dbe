package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/logging"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

// mockBackend implements Backend for testing.
type mockBackend struct {
	SearchFn func(ctx context.Context, req search.Request) (*kbsearch.SearchResponse, error)
	ListFn   func(ctx context.Context) ([]registry.KnowledgeBase, error)
	StatusFn func(ctx context.Context) (*kbsearch.Status, error)

	lastRequest search.Request
}

func (m *mockBackend) Search(ctx context.Context, req search.Request) (*kbsearch.SearchResponse, error) {
	m.lastRequest = req
	if m.SearchFn != nil {
		return m.SearchFn(ctx, req)
	}
	return &kbsearch.SearchResponse{Query: req.Query, Results: []search.Hit{}}, nil
}

func (m *mockBackend) List(ctx context.Context) ([]registry.KnowledgeBase, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) Status(ctx context.Context) (*kbsearch.Status, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	return &kbsearch.Status{}, nil
}

func newTestServer(t *testing.T, backend Backend) *Server {
	t.Helper()
	s, err := NewServer(backend, logging.Discard())
	require.NoError(t, err)
	return s
}

func sampleResponse() *kbsearch.SearchResponse {
	return &kbsearch.SearchResponse{
		Query:        "bm25 ranking",
		TotalResults: 2,
		Results: []search.Hit{
			{KnowledgeBase: "notes", Path: "ranking.md", Title: "Ranking", Score: 2.5, Snippet: "...BM25 ranking...", Highlights: []string{"...ranking signals..."}},
			{KnowledgeBase: "wiki", Path: "api/search.md", Score: 1.25},
		},
	}
}

func TestNewServer_RequiresBackend(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t, &mockBackend{})

	names := make([]string, 0, 3)
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{"search", "list_knowledge_bases", "status"}, names)

	name, ver := s.Info()
	assert.Equal(t, "kbsearch", name)
	assert.NotEmpty(t, ver)
}

func TestServer_CallTool_Search(t *testing.T) {
	t.Run("formats markdown and forwards options", func(t *testing.T) {
		// Given
		backend := &mockBackend{
			SearchFn: func(_ context.Context, _ search.Request) (*kbsearch.SearchResponse, error) {
				return sampleResponse(), nil
			},
		}
		s := newTestServer(t, backend)

		// When
		got, err := s.CallTool(context.Background(), "search", map[string]any{
			"query":           "bm25 ranking",
			"limit":           float64(5),
			"knowledge_bases": []any{"notes", "wiki"},
			"dirs":            []any{"api/"},
			"highlights":      true,
		})

		// Then
		require.NoError(t, err)
		text, ok := got.(string)
		require.True(t, ok)
		assert.Contains(t, text, "## Search Results for: bm25 ranking")
		assert.Contains(t, text, "### 1. Ranking")
		assert.Contains(t, text, "### 2. api/search.md")
		assert.Contains(t, text, "> ...BM25 ranking...")
		assert.Contains(t, text, "- ...ranking signals...")

		assert.Equal(t, 5, backend.lastRequest.Limit)
		assert.Equal(t, []string{"notes", "wiki"}, backend.lastRequest.Bases)
		assert.Equal(t, []string{"api/"}, backend.lastRequest.Dirs)
		assert.True(t, backend.lastRequest.IncludeSnippet)
		assert.True(t, backend.lastRequest.Highlights)
	})

	t.Run("limit defaults and clamps", func(t *testing.T) {
		backend := &mockBackend{}
		s := newTestServer(t, backend)

		_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "x"})
		require.NoError(t, err)
		assert.Equal(t, defaultLimit, backend.lastRequest.Limit)

		_, err = s.CallTool(context.Background(), "search", map[string]any{"query": "x", "limit": 5000})
		require.NoError(t, err)
		assert.Equal(t, maxLimit, backend.lastRequest.Limit)
	})

	t.Run("empty query is invalid params", func(t *testing.T) {
		s := newTestServer(t, &mockBackend{})

		_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "  "})

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
	})

	t.Run("bad argument types", func(t *testing.T) {
		s := newTestServer(t, &mockBackend{})

		for _, args := range []map[string]any{
			{"query": "x", "limit": "ten"},
			{"query": "x", "dirs": "api/"},
			{"query": "x", "knowledge_bases": []any{1}},
		} {
			_, err := s.CallTool(context.Background(), "search", args)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		}
	})

	t.Run("backend errors are mapped", func(t *testing.T) {
		s := newTestServer(t, &mockBackend{
			SearchFn: func(_ context.Context, _ search.Request) (*kbsearch.SearchResponse, error) {
				return nil, kberrors.NotFoundError("ghost")
			},
		})

		_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "x", "knowledge_bases": []string{"ghost"}})

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrCodeKnowledgeBase, mcpErr.Code)
	})

	t.Run("no results", func(t *testing.T) {
		s := newTestServer(t, &mockBackend{})

		got, err := s.CallTool(context.Background(), "search", map[string]any{"query": "missing"})

		require.NoError(t, err)
		assert.Equal(t, "No results found for: missing", got)
	})
}

func TestServer_CallTool_ListAndStatus(t *testing.T) {
	indexed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend := &mockBackend{
		ListFn: func(context.Context) ([]registry.KnowledgeBase, error) {
			return []registry.KnowledgeBase{
				{Name: "notes", Description: "personal notes", Enabled: true, DocumentCount: 12, LastIndexedAt: &indexed},
				{Name: "old", Enabled: false},
			}, nil
		},
		StatusFn: func(context.Context) (*kbsearch.Status, error) {
			return &kbsearch.Status{
				TotalKnowledgeBases: 2,
				Enabled:             1,
				Disabled:            1,
				TotalDocuments:      12,
				KnowledgeBases: []kbsearch.BaseStatus{
					{Name: "notes", Enabled: true, Documents: 12, LastIndexedAt: &indexed},
					{Name: "old"},
				},
			}, nil
		},
	}
	s := newTestServer(t, backend)

	t.Run("list", func(t *testing.T) {
		got, err := s.CallTool(context.Background(), "list_knowledge_bases", nil)
		require.NoError(t, err)

		out, ok := got.(*ListOutput)
		require.True(t, ok)
		require.Len(t, out.KnowledgeBases, 2)
		assert.Equal(t, "2026-03-01T12:00:00Z", out.KnowledgeBases[0].LastIndexedAt)
		assert.Equal(t, 12, out.KnowledgeBases[0].Documents)
		assert.Empty(t, out.KnowledgeBases[1].LastIndexedAt)
	})

	t.Run("status", func(t *testing.T) {
		got, err := s.CallTool(context.Background(), "status", nil)
		require.NoError(t, err)

		out, ok := got.(*StatusOutput)
		require.True(t, ok)
		assert.Equal(t, 2, out.TotalKnowledgeBases)
		assert.Equal(t, 1, out.Disabled)
		assert.Equal(t, 12, out.TotalDocuments)
		assert.Len(t, out.KnowledgeBases, 2)
	})
}

func TestServer_CallTool_UnknownTool(t *testing.T) {
	s := newTestServer(t, &mockBackend{})

	_, err := s.CallTool(context.Background(), "search_code", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_SearchHandlerOutput(t *testing.T) {
	s := newTestServer(t, &mockBackend{
		SearchFn: func(_ context.Context, _ search.Request) (*kbsearch.SearchResponse, error) {
			return sampleResponse(), nil
		},
	})

	_, out, err := s.mcpSearchHandler(context.Background(), nil, SearchInput{Query: "bm25 ranking"})

	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalResults)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "notes", out.Results[0].KnowledgeBase)
	assert.InDelta(t, 2.5, out.Results[0].Score, 1e-9)
}

func TestServer_Serve_UnknownTransport(t *testing.T) {
	s := newTestServer(t, &mockBackend{})
	err := s.Serve(context.Background(), "sse")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 10},
		{-3, 10},
		{1, 1},
		{50, 50},
		{101, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.in, 10, 1, 100), "limit %d", tt.in)
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()
	assert.Len(t, id, 8)
}
