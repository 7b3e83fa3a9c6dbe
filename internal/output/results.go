package output

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/ui"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

// SearchResults prints a search response.
func (w *Writer) SearchResults(resp *kbsearch.SearchResponse, format Format) error {
	if format == FormatJSON {
		return w.JSON(resp)
	}

	if len(resp.Results) == 0 {
		w.Status("", fmt.Sprintf("No results found for %q", resp.Query))
		return nil
	}

	w.Statusf("🔍", "Found %d results for %q:", resp.TotalResults, resp.Query)
	w.Newline()
	for i, hit := range resp.Results {
		w.Statusf("", "%d. [%s] %s (score: %.3f)", i+1, hit.KnowledgeBase, hit.Path, hit.Score)
		if hit.Title != "" {
			w.Status("", "   "+hit.Title)
		}
		if hit.Snippet != "" {
			w.Status("", "   "+hit.Snippet)
		}
		for _, h := range hit.Highlights {
			w.Status("", "   > "+h)
		}
		if hit.Content != "" {
			w.Newline()
			w.Indented(strings.TrimRight(hit.Content, "\n"))
		}
		w.Newline()
	}
	return nil
}

// KnowledgeBases prints the registered knowledge bases.
func (w *Writer) KnowledgeBases(kbs []registry.KnowledgeBase, format Format) error {
	if format == FormatJSON {
		if kbs == nil {
			kbs = []registry.KnowledgeBase{}
		}
		return w.JSON(map[string]any{"knowledge_bases": kbs})
	}

	if len(kbs) == 0 {
		w.Status("", "No knowledge bases registered. Run 'kbsearch add <name> <path>' to add one.")
		return nil
	}
	for _, kb := range kbs {
		state := "enabled"
		if !kb.Enabled {
			state = "disabled"
		}
		indexed := "not indexed"
		if kb.Indexed() {
			indexed = fmt.Sprintf("%d documents", kb.DocumentCount)
		}
		w.Statusf("•", "%s (%s, %s)", kb.Name, state, indexed)
		w.Status("", "  "+kb.Path)
		if kb.Description != "" {
			w.Status("", "  "+ui.Truncate(kb.Description, 72))
		}
	}
	return nil
}

// Info prints one knowledge base and its index statistics.
func (w *Writer) Info(info *kbsearch.Info, format Format) error {
	if format == FormatJSON {
		return w.JSON(info)
	}

	state := "enabled"
	if !info.Enabled {
		state = "disabled"
	}
	w.Statusf("📚", "%s (%s)", info.Name, state)
	w.Status("", "Path:        "+info.Path)
	if info.Description != "" {
		w.Status("", "Description: "+info.Description)
	}
	if len(info.Extensions) > 0 {
		w.Status("", "Extensions:  "+strings.Join(info.Extensions, " "))
	}
	w.Status("", "Created:     "+info.CreatedAt.Local().Format("2006-01-02 15:04"))
	w.Newline()

	switch info.State {
	case kbsearch.IndexNotIndexed:
		w.Status("", "Index:       not indexed (run 'kbsearch index "+info.Name+"')")
	case kbsearch.IndexCorrupt:
		w.Status("", "Index:       corrupt, rebuild required")
		w.Status("", "             "+info.Problem)
	default:
		w.Statusf("", "Documents:   %d", info.Stats.DocumentCount)
		w.Statusf("", "Terms:       %d", info.Stats.TermCount)
		w.Statusf("", "Avg length:  %.1f terms", info.Stats.AvgDocLength)
		w.Status("", "Index size:  "+ui.FormatBytes(info.IndexSize))
		if info.BuiltAt != nil {
			w.Status("", "Built at:    "+info.BuiltAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

// IndexSummaries prints the outcome of index builds.
func (w *Writer) IndexSummaries(summaries []index.Summary, format Format) error {
	if format == FormatJSON {
		if summaries == nil {
			summaries = []index.Summary{}
		}
		return w.JSON(map[string]any{"results": summaries})
	}

	for _, s := range summaries {
		if !s.Changed() {
			w.Successf("%s is up to date (%d documents)", s.Base, s.Documents)
			continue
		}
		w.Successf("%s: %d documents (%d added, %d updated, %d removed, %d unchanged)",
			s.Base, s.Documents, s.Added, s.Updated, s.Removed, s.Unchanged)
		if s.Rebuilt {
			w.Warning("the previous index was corrupt and has been rebuilt")
		}
		for _, fe := range s.Errors {
			w.Warningf("skipped %s: %s", fe.Path, fe.Error)
		}
	}
	return nil
}
