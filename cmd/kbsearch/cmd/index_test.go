package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/ui"
)

func TestIndexCmd_PlainOutput(t *testing.T) {
	// Given: a registered base with two documents
	env := newCLIEnv(t)
	root := env.docs(t, "notes", map[string]string{
		"search.md":  "# Search\n\nBM25 ranking of documents",
		"ranking.md": "# Ranking\n\nranking signals",
	})
	_, err := env.run(t, "add", "notes", root)
	require.NoError(t, err)

	// When: indexing it twice
	first, err := env.run(t, "index", "notes", "--no-tui")
	require.NoError(t, err)
	second, err := env.run(t, "index", "notes", "--no-tui")
	require.NoError(t, err)

	// Then: the first run adds both files and the second changes nothing
	assert.Contains(t, first, "Indexing notes")
	assert.Contains(t, first, "Complete: notes: 2 documents")
	assert.Contains(t, first, "2 added")
	assert.Contains(t, second, "0 added, 0 updated, 0 removed, 2 unchanged")
}

func TestIndexCmd_JSON(t *testing.T) {
	env := newCLIEnv(t)
	root := env.docs(t, "notes", map[string]string{"a.md": "alpha text", "b.md": "beta text"})
	_, err := env.run(t, "add", "notes", root)
	require.NoError(t, err)

	raw, err := env.run(t, "index", "notes", "--format", "json")
	require.NoError(t, err)

	var decoded struct {
		Results []index.Summary `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "notes", decoded.Results[0].Base)
	assert.Equal(t, 2, decoded.Results[0].Added)
}

func TestIndexCmd_ForceRebuilds(t *testing.T) {
	env := newCLIEnv(t)
	root := env.docs(t, "notes", map[string]string{"a.md": "alpha text"})
	_, err := env.run(t, "add", "notes", root)
	require.NoError(t, err)
	_, err = env.run(t, "index", "notes", "--no-tui")
	require.NoError(t, err)

	out, err := env.run(t, "index", "notes", "--no-tui", "--force")

	require.NoError(t, err)
	assert.Contains(t, out, "1 added")
}

func TestIndexCmd_AllEnabled(t *testing.T) {
	// Given: two bases, one disabled
	env := newCLIEnv(t)
	_, err := env.run(t, "add", "notes", env.docs(t, "notes", map[string]string{"a.md": "alpha"}))
	require.NoError(t, err)
	_, err = env.run(t, "add", "old", env.docs(t, "old", map[string]string{"b.md": "beta"}))
	require.NoError(t, err)
	_, err = env.run(t, "disable", "old")
	require.NoError(t, err)

	// When
	out, err := env.run(t, "index", "--no-tui")

	// Then: only the enabled base is built
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing all enabled knowledge bases")
	assert.Contains(t, out, "Complete: notes:")
	assert.NotContains(t, out, "Complete: old:")
}

func TestIndexCmd_NothingToIndex(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "index", "--no-tui")

	require.NoError(t, err)
	assert.Contains(t, out, "No enabled knowledge bases to index")
}

func TestIndexCmd_UnknownBase(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "index", "ghost", "--no-tui")

	assert.True(t, errors.Is(err, kberrors.ErrNotFound))
}

func TestIndexCmd_ReportsSkippedFiles(t *testing.T) {
	// Given: a text file with binary content
	env := newCLIEnv(t)
	root := env.docs(t, "notes", map[string]string{"good.md": "alpha text"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.txt"), []byte("abc\x00def"), 0o644))
	_, err := env.run(t, "add", "notes", root)
	require.NoError(t, err)

	// When
	out, err := env.run(t, "index", "notes", "--no-tui")

	// Then
	require.NoError(t, err)
	assert.Contains(t, out, "WARN: bad.txt")
	assert.Contains(t, out, "1 skipped")
}

// recordingRenderer captures progress events.
type recordingRenderer struct {
	mu     sync.Mutex
	events []ui.ProgressEvent
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) AddError(ui.ErrorEvent) {}
func (r *recordingRenderer) Complete(ui.CompletionStats) {}
func (r *recordingRenderer) Stop() error { return nil }

func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestProgressBridge(t *testing.T) {
	tests := []struct {
		name     string
		withBase bool
		in       index.Progress
		want     ui.ProgressEvent
	}{
		{
			name: "single base",
			in:   index.Progress{Base: "notes", Stage: index.StageExtracting, Current: 2, Total: 5, Path: "a.md"},
			want: ui.ProgressEvent{Stage: ui.StageExtracting, Current: 2, Total: 5, CurrentFile: "a.md", Message: "a.md"},
		},
		{
			name:     "several bases prefix the name",
			withBase: true,
			in:       index.Progress{Base: "notes", Stage: index.StageExtracting, Current: 1, Total: 1, Path: "a.md"},
			want:     ui.ProgressEvent{Stage: ui.StageExtracting, Current: 1, Total: 1, CurrentFile: "a.md", Message: "notes: a.md"},
		},
		{
			name:     "scan without a path",
			withBase: true,
			in:       index.Progress{Base: "notes", Stage: index.StageScanning},
			want:     ui.ProgressEvent{Stage: ui.StageScanning, Message: "notes"},
		},
		{
			name: "writing",
			in:   index.Progress{Base: "notes", Stage: index.StageWriting, Current: 3, Total: 3},
			want: ui.ProgressEvent{Stage: ui.StageWriting, Current: 3, Total: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRenderer{}

			progressBridge(r, tt.withBase)(tt.in)

			require.Len(t, r.events, 1)
			assert.Equal(t, tt.want, r.events[0])
		})
	}
}
