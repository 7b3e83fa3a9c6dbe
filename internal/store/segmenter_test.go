package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentWords(d *Dictionary, run string) []string {
	var out []string
	for _, s := range d.segmentRun(run) {
		out = append(out, run[s.start:s.end])
	}
	return out
}

func TestBuiltinDictionary(t *testing.T) {
	d := BuiltinDictionary()

	assert.True(t, d.Contains("清华大学"), "bundled Chinese dictionary")
	assert.True(t, d.Contains("倒排索引"), "supplement")
	assert.False(t, d.Contains("㐀㐁"))
	assert.Same(t, d, BuiltinDictionary())
}

func TestDictionary_UserEntriesChangeSegmentation(t *testing.T) {
	// Given: a run the builtin dictionary does not know
	base := BuiltinDictionary()
	require.Equal(t, []string{"㐀㐁", "㐁㐂"}, segmentWords(base, "㐀㐁㐂"))

	// When: a user dictionary adds the word
	d, err := base.WithUserDictionary(strings.NewReader("# custom\n㐀㐁㐂 50\n"))
	require.NoError(t, err)

	// Then: the run is one word and the builtin dictionary is untouched
	assert.Equal(t, []string{"㐀㐁㐂"}, segmentWords(d, "㐀㐁㐂"))
	assert.False(t, base.Contains("㐀㐁㐂"))
}

func TestDictionary_UserEntriesAccumulate(t *testing.T) {
	first, err := BuiltinDictionary().WithUserDictionary(strings.NewReader("㐀㐁\n"))
	require.NoError(t, err)

	second, err := first.WithUserDictionary(strings.NewReader("㐃㐄 10 n\n"))
	require.NoError(t, err)

	assert.True(t, second.Contains("㐀㐁"), "entries of the parent dictionary are kept")
	assert.True(t, second.Contains("㐃㐄"))
	assert.False(t, first.Contains("㐃㐄"))
}

func TestDictionary_InvalidFrequency(t *testing.T) {
	_, err := BuiltinDictionary().WithUserDictionary(strings.NewReader("词 abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParseDictionary(t *testing.T) {
	entries, err := parseDictionary(strings.NewReader("# comment\n\n词\n检索 20\n分词 30 v\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"词 3", "检索 20", "分词 30 v"}, entries)
}

func TestLoadUserDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.dict")
	require.NoError(t, os.WriteFile(path, []byte("㐅㐆㐇 120 n\n"), 0o644))

	d, err := LoadUserDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"㐅㐆㐇"}, segmentWords(d, "㐅㐆㐇"))

	_, err = LoadUserDictionary(filepath.Join(t.TempDir(), "missing.dict"))
	assert.Error(t, err)
}

func TestSegmentRun(t *testing.T) {
	d := BuiltinDictionary()

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, d.segmentRun(""))
	})

	t.Run("offsets cover known words", func(t *testing.T) {
		run := "知识库检索"
		segs := d.segmentRun(run)
		require.Len(t, segs, 2)
		for _, s := range segs {
			assert.True(t, s.known)
		}
		assert.Equal(t, 0, segs[0].start)
		assert.Equal(t, len(run), segs[1].end)
		assert.Equal(t, segs[0].end, segs[1].start)
	})
}
