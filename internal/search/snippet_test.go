package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	long := strings.Repeat("lorem ipsum ", 20) + "needle here " + strings.Repeat("dolor sit ", 20)

	tests := []struct {
		name    string
		content string
		offset  int
		query   string
		width   int
		want    func(t *testing.T, got string)
	}{
		{
			name: "short content is returned whole", content: "hello   world\n\nagain", offset: 0, width: 50,
			want: func(t *testing.T, got string) { assert.Equal(t, "hello world again", got) },
		},
		{
			name: "window around offset", content: long, offset: strings.Index(long, "needle"), width: 30,
			want: func(t *testing.T, got string) {
				assert.Contains(t, got, "needle")
				assert.True(t, strings.HasPrefix(got, "..."))
				assert.True(t, strings.HasSuffix(got, "..."))
			},
		},
		{
			name: "literal fallback ignores case", content: long, offset: -1, query: "NEEDLE", width: 30,
			want: func(t *testing.T, got string) { assert.Contains(t, got, "needle") },
		},
		{
			name: "leading text when nothing matches", content: long, offset: -1, query: "absent", width: 11,
			want: func(t *testing.T, got string) { assert.Equal(t, "lorem ipsum...", got) },
		},
		{
			name: "multibyte window", content: "前文前文前文知识库搜索引擎后文后文后文", offset: strings.Index("前文前文前文知识库搜索引擎后文后文后文", "搜索"), width: 6,
			want: func(t *testing.T, got string) {
				assert.Contains(t, got, "搜索")
				assert.Equal(t, "...知识库搜索引...", got)
			},
		},
		{
			name: "empty content", content: "", offset: 0, width: 10,
			want: func(t *testing.T, got string) { assert.Empty(t, got) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Snippet(tt.content, tt.offset, tt.query, tt.width))
		})
	}
}

func TestHighlights(t *testing.T) {
	content := "one two three four five six seven eight"

	tests := []struct {
		name    string
		offsets []int
		width   int
		want    []string
	}{
		{"none", nil, 8, nil},
		{"one window per offset", []int{4, 24}, 8, []string{"one two...", "...ive six..."}},
		{"duplicates dropped", []int{0, 0}, 8, []string{"one two..."}},
		{"out of range skipped", []int{-1, 500}, 8, nil},
		{"capped", []int{0, 8, 14, 24}, 6, []string{"one tw...", "...wo thr...", "...ee fou..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlights(content, tt.offsets, tt.width))
		})
	}
}
