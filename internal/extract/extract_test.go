package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_Markdown(t *testing.T) {
	// Given: a markdown document with a heading, emphasis, a link and code
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.md", "# Search *Guide*\n\nBM25 ranks [documents](http://x.test) by **relevance**.\n\n```go\nfunc main() {}\n```\n\n<div>raw html</div>\n")

	// When: extracting it
	doc, err := New().Extract(context.Background(), path)

	// Then: the title is the first level-1 heading and markup is gone
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, doc.Format)
	assert.Equal(t, "Search Guide", doc.Title)
	assert.Contains(t, doc.Text, "BM25 ranks documents by relevance.")
	assert.Contains(t, doc.Text, "func main() {}")
	assert.NotContains(t, doc.Text, "**")
	assert.NotContains(t, doc.Text, "http://x.test")
	assert.NotContains(t, doc.Text, "raw html")
}

func TestExtract_MarkdownTitleFallsBackToStem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "release-notes.markdown", "## Only a subheading\n\nbody text\n")

	doc, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "release-notes", doc.Title)
	assert.Contains(t, doc.Text, "Only a subheading")
}

func TestExtract_HTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html", `<html><head><title>Index &amp; Search</title>
<style>body { color: red }</style></head>
<body><!-- hidden --><h1>Welcome</h1><p>知识库 &lt;search&gt; engine</p>
<script>var x = "noise";</script></body></html>`)

	doc, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, FormatHTML, doc.Format)
	assert.Equal(t, "Index & Search", doc.Title)
	assert.Contains(t, doc.Text, "Welcome")
	assert.Contains(t, doc.Text, "知识库 <search> engine")
	assert.NotContains(t, doc.Text, "color")
	assert.NotContains(t, doc.Text, "noise")
	assert.NotContains(t, doc.Text, "hidden")
	assert.NotContains(t, doc.Text, "<p>")
}

func TestExtract_HTMLTitleFromHeading(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.htm", `<body><h1 class="x">Main <em>Topic</em></h1><p>text</p></body>`)

	doc, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "Main Topic", doc.Title)
}

func TestExtract_PlainFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"notes.txt", "plain notes"},
		{"table.csv", "name,score\nalpha,1"},
		{"data.json", `{"key": "value"}`},
		{"conf.YAML", "key: value"},
		{"doc.rst", "Title\n=====\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.name, tt.content)

			doc, err := New().Extract(context.Background(), path)

			require.NoError(t, err)
			assert.Equal(t, FormatText, doc.Format)
			assert.Equal(t, tt.content, doc.Text)
			assert.Equal(t, strings.TrimSuffix(tt.name, filepath.Ext(tt.name)), doc.Title)
		})
	}
}

func TestExtract_StripsBOM(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bom.txt", "\xef\xbb\xbfhello")

	doc, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Text)
}

func TestExtract_Failures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		opts []Option
	}{
		{"unsupported extension", writeFile(t, dir, "image.png", "png"), nil},
		{"invalid utf8", writeFile(t, dir, "latin1.txt", "caf\xe9"), nil},
		{"binary", writeFile(t, dir, "blob.txt", "ab\x00cd"), nil},
		{"too large", writeFile(t, dir, "big.txt", strings.Repeat("x", 64)), []Option{WithMaxFileSize(16)}},
		{"missing", filepath.Join(dir, "missing.md"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New(tt.opts...).Extract(context.Background(), tt.path)

			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, kberrors.ErrExtraction)
		})
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, path)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/b/README.MD"))
	assert.True(t, Supported("x.htm"))
	assert.False(t, Supported("main.go"))
	assert.False(t, Supported("Makefile"))
}
