// Package extract turns source files into plain text for indexing.
//
// Only text-like formats are supported. Markdown is reduced to its visible
// text with goldmark, HTML has its markup removed with bleve's html char
// filter, and every other supported extension is read as UTF-8 text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/yuin/goldmark"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
)

// DefaultMaxFileSize is the largest file Extract reads (10 MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Format identifies how a file is converted to text.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
)

// Document is the extracted text of one file.
type Document struct {
	Text   string
	Title  string
	Format Format
}

// TextExtractor converts a file into indexable text.
// Failures are reported as *errors.KBError with code ERR_206_EXTRACTION_FAILED.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// formats maps lowercase extensions to their format.
var formats = map[string]Format{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".txt":      FormatText,
	".rst":      FormatText,
	".csv":      FormatText,
	".json":     FormatText,
	".xml":      FormatText,
	".yaml":     FormatText,
	".yml":      FormatText,
}

// FormatOf returns the format for path's extension.
func FormatOf(path string) (Format, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Supported reports whether Extract handles path's extension.
func Supported(path string) bool {
	_, ok := FormatOf(path)
	return ok
}

// Extractor is the TextExtractor for the built-in formats.
// It is safe for concurrent use.
type Extractor struct {
	maxSize  int64
	markdown goldmark.Markdown
	html     analysis.CharFilter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize sets the largest file that will be read.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxSize:  DefaultMaxFileSize,
		markdown: goldmark.New(),
		html:     newHTMLFilter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements TextExtractor.
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, ok := FormatOf(path)
	if !ok {
		return nil, kberrors.ExtractionError(path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, kberrors.ExtractionError(path, err)
	}
	if info.Size() > e.maxSize {
		return nil, kberrors.ExtractionError(path, fmt.Errorf("file size %d exceeds limit %d", info.Size(), e.maxSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kberrors.ExtractionError(path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, kberrors.ExtractionError(path, fmt.Errorf("binary content"))
	}
	if !utf8.Valid(data) {
		return nil, kberrors.ExtractionError(path, fmt.Errorf("content is not valid UTF-8"))
	}

	doc := &Document{Format: format}
	switch format {
	case FormatMarkdown:
		doc.Text, doc.Title = e.extractMarkdown(data)
	case FormatHTML:
		doc.Text, doc.Title = e.extractHTML(data)
	default:
		doc.Text = string(data)
	}
	if doc.Title == "" {
		doc.Title = stem(path)
	}
	return doc, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
