package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

// FormatSearchResults renders results as markdown.
func FormatSearchResults(resp *kbsearch.SearchResponse) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No results found for: %s", resp.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for: %s\n\n", resp.Query)
	fmt.Fprintf(&sb, "Found %d results.\n\n", resp.TotalResults)
	for i, hit := range resp.Results {
		title := hit.Title
		if title == "" {
			title = hit.Path
		}
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, title)
		fmt.Fprintf(&sb, "**Knowledge base:** %s | **Path:** `%s` | **Score:** %.3f\n\n", hit.KnowledgeBase, hit.Path, hit.Score)
		if hit.Snippet != "" {
			fmt.Fprintf(&sb, "> %s\n\n", hit.Snippet)
		}
		for _, h := range hit.Highlights {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
		if len(hit.Highlights) > 0 {
			sb.WriteString("\n")
		}
		if hit.Content != "" {
			fmt.Fprintf(&sb, "```\n%s\n```\n\n", strings.TrimRight(hit.Content, "\n"))
		}
	}
	return sb.String()
}

// clampLimit returns defaultVal for a non-positive limit and clamps the rest to [lo, hi].
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	return max(lo, min(limit, hi))
}

func toSearchOutput(resp *kbsearch.SearchResponse) SearchOutput {
	out := SearchOutput{
		Query:        resp.Query,
		TotalResults: resp.TotalResults,
		Results:      make([]SearchResultOutput, 0, len(resp.Results)),
	}
	for _, h := range resp.Results {
		out.Results = append(out.Results, toResultOutput(h))
	}
	return out
}

func toResultOutput(h search.Hit) SearchResultOutput {
	return SearchResultOutput{
		KnowledgeBase: h.KnowledgeBase,
		Path:          h.Path,
		Title:         h.Title,
		Score:         h.Score,
		Snippet:       h.Snippet,
		Highlights:    h.Highlights,
		Content:       h.Content,
	}
}

func toKnowledgeBaseOutput(kb registry.KnowledgeBase) KnowledgeBaseOutput {
	out := KnowledgeBaseOutput{
		Name:        kb.Name,
		Description: kb.Description,
		Enabled:     kb.Enabled,
		Documents:   kb.DocumentCount,
	}
	if kb.LastIndexedAt != nil {
		out.LastIndexedAt = kb.LastIndexedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toStatusOutput(st *kbsearch.Status) StatusOutput {
	out := StatusOutput{
		TotalKnowledgeBases: st.TotalKnowledgeBases,
		Enabled:             st.Enabled,
		Disabled:            st.Disabled,
		TotalDocuments:      st.TotalDocuments,
		KnowledgeBases:      make([]KnowledgeBaseOutput, 0, len(st.KnowledgeBases)),
	}
	for _, b := range st.KnowledgeBases {
		kb := KnowledgeBaseOutput{Name: b.Name, Enabled: b.Enabled, Documents: b.Documents}
		if b.LastIndexedAt != nil {
			kb.LastIndexedAt = b.LastIndexedAt.UTC().Format(time.RFC3339)
		}
		out.KnowledgeBases = append(out.KnowledgeBases, kb)
	}
	return out
}
