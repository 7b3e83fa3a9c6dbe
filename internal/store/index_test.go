package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addDoc(t *testing.T, idx *InvertedIndex, path string, terms ...string) int64 {
	t.Helper()
	tokens := make([]Token, len(terms))
	for i, term := range terms {
		tokens[i] = Token{Term: term, Start: i * 10}
	}
	id := idx.AllocateDocID()
	require.NoError(t, idx.AddDocument(DocumentRecord{
		DocID:       id,
		RelPath:     path,
		ContentHash: "hash-" + path,
		ModTime:     time.Unix(1700000000, 0),
		Length:      len(terms),
	}, TermStats(tokens)))
	return id
}

func TestInvertedIndex_AddDocument(t *testing.T) {
	// Given: an empty index
	idx := NewInvertedIndex()

	// When: adding two documents
	a := addDoc(t, idx, "a.md", "go", "index", "go")
	b := addDoc(t, idx, "b.md", "index")

	// Then: postings, lengths and statistics reflect both
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
	assert.Equal(t, 2, idx.TotalDocuments())
	assert.Equal(t, 2.0, idx.AvgDocLength())
	assert.Equal(t, []Posting{{DocID: a, Freq: 2, FirstOffset: 0}}, idx.Postings("go"))
	assert.Equal(t, 2, idx.DocFreq("index"))
	assert.Equal(t, []string{"go", "index"}, idx.Terms())
	require.NoError(t, idx.Validate())
}

func TestInvertedIndex_AddDocument_Rejects(t *testing.T) {
	idx := NewInvertedIndex()
	id := addDoc(t, idx, "a.md", "go")

	assert.Error(t, idx.AddDocument(DocumentRecord{DocID: id, RelPath: "other.md"}, nil))
	assert.Error(t, idx.AddDocument(DocumentRecord{DocID: 99, RelPath: "a.md"}, nil))
	assert.Error(t, idx.AddDocument(DocumentRecord{DocID: 0, RelPath: "zero.md"}, nil))
}

func TestInvertedIndex_RemoveDocument_DropsEmptyTerms(t *testing.T) {
	idx := NewInvertedIndex()
	a := addDoc(t, idx, "a.md", "unique", "shared")
	addDoc(t, idx, "b.md", "shared", "shared", "other")

	require.True(t, idx.RemoveDocument(a))

	assert.Nil(t, idx.Postings("unique"))
	assert.NotContains(t, idx.Terms(), "unique")
	assert.Equal(t, 1, idx.DocFreq("shared"))
	assert.Equal(t, 1, idx.TotalDocuments())
	assert.Equal(t, 3.0, idx.AvgDocLength())
	_, ok := idx.DocumentByPath("a.md")
	assert.False(t, ok)
	require.NoError(t, idx.Validate())

	assert.False(t, idx.RemoveDocument(a))
}

func TestInvertedIndex_RemoveLastDocument(t *testing.T) {
	idx := NewInvertedIndex()
	a := addDoc(t, idx, "a.md", "go")

	idx.RemoveDocument(a)

	assert.Equal(t, 0, idx.TotalDocuments())
	assert.Equal(t, 0.0, idx.AvgDocLength())
	assert.Empty(t, idx.Terms())
	assert.Equal(t, int64(2), idx.NextDocID(), "docIds are never reused for new files")
}

func TestInvertedIndex_ReinsertKeepsOrder(t *testing.T) {
	// Given: three documents sharing a term
	idx := NewInvertedIndex()
	a := addDoc(t, idx, "a.md", "term")
	b := addDoc(t, idx, "b.md", "term")
	addDoc(t, idx, "c.md", "term")

	// When: the middle document changes and is reinserted under its old id
	idx.RemoveDocument(b)
	require.NoError(t, idx.AddDocument(DocumentRecord{DocID: b, RelPath: "b.md", Length: 1},
		[]TermStat{{Term: "term", Freq: 4}}))

	// Then: postings stay ordered by docId
	postings := idx.Postings("term")
	require.Len(t, postings, 3)
	assert.Equal(t, []int64{a, b, 3}, []int64{postings[0].DocID, postings[1].DocID, postings[2].DocID})
	assert.Equal(t, 4, postings[1].Freq)
	require.NoError(t, idx.Validate())
}

func TestInvertedIndex_CloneIsIndependent(t *testing.T) {
	// Given: a published index
	orig := NewInvertedIndex()
	a := addDoc(t, orig, "a.md", "alpha", "beta")

	// When: mutating a clone
	clone := orig.Clone()
	clone.RemoveDocument(a)
	addDoc(t, clone, "b.md", "gamma")

	// Then: the original is untouched
	assert.Equal(t, 1, orig.TotalDocuments())
	assert.Len(t, orig.Postings("alpha"), 1)
	assert.Nil(t, orig.Postings("gamma"))
	require.NoError(t, orig.Validate())
	require.NoError(t, clone.Validate())
}

func TestInvertedIndex_Documents_SortedByID(t *testing.T) {
	idx := NewInvertedIndex()
	for _, p := range []string{"c.md", "a.md", "b.md"} {
		addDoc(t, idx, p, "x"+p)
	}

	docs := idx.Documents()

	require.Len(t, docs, 3)
	assert.Equal(t, "c.md", docs[0].RelPath)
	assert.Equal(t, int64(3), docs[2].DocID)
	assert.Equal(t, IndexStats{DocumentCount: 3, TermCount: 3, AvgDocLength: 1}, idx.Stats())
}
