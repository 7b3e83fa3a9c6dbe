package search

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// MaxHighlights caps the highlight windows returned per hit.
const MaxHighlights = 3

// Snippet returns about width runes of content centred on the byte offset
// of the first match. When offset is negative the query is looked up as a
// case-insensitive literal, and failing that the leading text is used.
// Whitespace is collapsed and cut ends are marked with "...".
func Snippet(content string, offset int, query string, width int) string {
	if content == "" || width <= 0 {
		return ""
	}
	if offset < 0 || offset >= len(content) {
		offset = literalOffset(content, query)
	}
	if offset < 0 {
		offset = 0
	}
	for offset > 0 && !utf8.RuneStart(content[offset]) {
		offset--
	}

	// Walk back half the window, then forward the full width.
	start := offset
	for n := 0; start > 0 && n < width/2; n++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}
	end := start
	for n := 0; end < len(content) && n < width; n++ {
		_, size := utf8.DecodeRuneInString(content[end:])
		end += size
	}

	text := strings.Join(strings.Fields(content[start:end]), " ")
	if start > 0 {
		text = ellipsis + text
	}
	if end < len(content) {
		text += ellipsis
	}
	return text
}

// Highlights returns a Snippet window around each offset, in order, skipping
// windows identical to an earlier one. At most MaxHighlights are returned.
func Highlights(content string, offsets []int, width int) []string {
	var out []string
	for _, off := range offsets {
		if len(out) == MaxHighlights {
			break
		}
		if off < 0 || off >= len(content) {
			continue
		}
		h := Snippet(content, off, "", width)
		if h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

// literalOffset returns the byte offset of query in content, ignoring case,
// or -1.
func literalOffset(content, query string) int {
	query = strings.TrimSpace(query)
	if query == "" {
		return -1
	}
	lower := strings.ToLower(content)
	// Lowercasing can change byte lengths; offsets are only usable when it did not.
	if len(lower) != len(content) {
		return -1
	}
	return strings.Index(lower, strings.ToLower(query))
}
