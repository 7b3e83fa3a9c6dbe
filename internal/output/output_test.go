package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/internal/store"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_StatusLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Success("indexed")
	w.Warningf("skipped %d files", 2)
	w.Status("", "plain")

	assert.Equal(t, "✓ indexed\n⚠ skipped 2 files\n   plain\n", buf.String())
}

func TestWriter_Error(t *testing.T) {
	t.Run("coded error with suggestion", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf).Error(kberrors.NotFoundError("docs"))

		assert.Equal(t, "Error: knowledge base \"docs\" not found\n"+
			"  Hint: run 'kbsearch list' to see registered knowledge bases\n"+
			"  Code: ERR_302_KB_NOT_FOUND\n", buf.String())
	})

	t.Run("plain error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf).Error(errors.New("boom"))

		assert.Equal(t, "Error: boom\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf).ErrorJSON(kberrors.DisabledBaseError("docs"))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, kberrors.ErrCodeDisabledBase, decoded["code"])
		assert.Equal(t, "REGISTRY", decoded["category"])
	})
}

func sampleResponse() *kbsearch.SearchResponse {
	return &kbsearch.SearchResponse{
		Query:        "bm25",
		TotalResults: 1,
		Results: []search.Hit{{
			KnowledgeBase: "notes",
			Path:          "ranking.md",
			Title:         "Ranking",
			Score:         1.23456,
			Snippet:       "...BM25 ranks documents...",
		}},
	}
}

func TestWriter_SearchResults_Text(t *testing.T) {
	// Given
	buf := &bytes.Buffer{}

	// When
	require.NoError(t, New(buf).SearchResults(sampleResponse(), FormatText))

	// Then
	out := buf.String()
	assert.Contains(t, out, `Found 1 results for "bm25"`)
	assert.Contains(t, out, "1. [notes] ranking.md (score: 1.235)")
	assert.Contains(t, out, "Ranking")
	assert.Contains(t, out, "...BM25 ranks documents...")
}

func TestWriter_SearchResults_Highlights(t *testing.T) {
	resp := sampleResponse()
	resp.Results[0].Highlights = []string{"...BM25 ranks...", "...ranks documents..."}
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).SearchResults(resp, FormatText))

	assert.Contains(t, buf.String(), "   > ...BM25 ranks...\n")
	assert.Contains(t, buf.String(), "   > ...ranks documents...\n")
}

func TestWriter_SearchResults_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).SearchResults(sampleResponse(), FormatJSON))

	var decoded struct {
		Query        string           `json:"query"`
		TotalResults int              `json:"total_results"`
		Results      []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "bm25", decoded.Query)
	assert.Equal(t, 1, decoded.TotalResults)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "notes", decoded.Results[0]["knowledge_base"])
	assert.NotContains(t, decoded.Results[0], "content")
}

func TestWriter_SearchResults_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).SearchResults(&kbsearch.SearchResponse{Query: "nothing", Results: []search.Hit{}}, FormatText))
	assert.Contains(t, buf.String(), `No results found for "nothing"`)
}

func TestWriter_KnowledgeBases(t *testing.T) {
	at := time.Now()
	kbs := []registry.KnowledgeBase{
		{Name: "notes", Path: "/n", Enabled: true, LastIndexedAt: &at, DocumentCount: 4},
		{Name: "old", Path: "/o", Enabled: false, Description: "archived"},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).KnowledgeBases(kbs, FormatText))

	out := buf.String()
	assert.Contains(t, out, "• notes (enabled, 4 documents)")
	assert.Contains(t, out, "• old (disabled, not indexed)")
	assert.Contains(t, out, "archived")
}

func TestWriter_Info(t *testing.T) {
	built := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	info := &kbsearch.Info{
		Name:      "notes",
		Path:      "/n",
		Enabled:   true,
		State:     kbsearch.IndexReady,
		Stats:     store.IndexStats{DocumentCount: 3, TermCount: 40, AvgDocLength: 12.5},
		IndexSize: 2048,
		BuiltAt:   &built,
	}

	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).Info(info, FormatText))

	out := buf.String()
	assert.Contains(t, out, "notes (enabled)")
	assert.Contains(t, out, "Documents:   3")
	assert.Contains(t, out, "Terms:       40")
	assert.Contains(t, out, "Index size:  2.0 KB")
}

func TestWriter_IndexSummaries(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).IndexSummaries([]index.Summary{
		{Base: "a", Documents: 3},
		{Base: "b", Documents: 2, Added: 1, Skipped: 1, Errors: []index.FileError{{Path: "bad.bin", Error: "binary content"}}},
	}, FormatText))

	out := buf.String()
	assert.Contains(t, out, "a is up to date (3 documents)")
	assert.Contains(t, out, "b: 2 documents (1 added, 0 updated, 0 removed, 0 unchanged)")
	assert.Contains(t, out, "skipped bad.bin: binary content")
}
