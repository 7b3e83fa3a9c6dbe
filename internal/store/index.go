package store

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"time"
)

// DocumentRecord describes one indexed source file.
type DocumentRecord struct {
	DocID       int64
	RelPath     string
	ContentHash string
	ModTime     time.Time
	Size        int64
	// Length is the number of terms in the document.
	Length  int
	Title   string
	Content string
}

// Posting is one document entry in a term's postings list.
type Posting struct {
	DocID int64
	Freq  int
	// FirstOffset is the byte offset of the term's first occurrence in Content.
	FirstOffset int
}

// IndexStats summarizes an InvertedIndex.
type IndexStats struct {
	DocumentCount int     `json:"documents"`
	TermCount     int     `json:"terms"`
	AvgDocLength  float64 `json:"avg_doc_length"`
}

// InvertedIndex maps terms to postings for one knowledge base.
//
// Invariants, checked by Validate:
//   - every docId in a postings list has a DocumentRecord
//   - postings lists are non-empty and ordered by docId
//   - AvgDocLength equals the mean record Length (0 when empty)
//
// An InvertedIndex is not safe for concurrent mutation. Once published to
// readers it must not be mutated; builders work on a Clone.
type InvertedIndex struct {
	postings map[string][]Posting
	docs     map[int64]*DocumentRecord
	byPath   map[string]int64
	// docTerms is the forward index used to remove a document's postings.
	docTerms map[int64][]string

	totalLength int64
	avgLength   float64
	nextDocID   int64

	// BuiltAt is when the index was last written.
	BuiltAt time.Time
}

// NewInvertedIndex returns an empty index whose first docId is 1.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings:  make(map[string][]Posting),
		docs:      make(map[int64]*DocumentRecord),
		byPath:    make(map[string]int64),
		docTerms:  make(map[int64][]string),
		nextDocID: 1,
	}
}

// Clone returns a deep copy that can be mutated without affecting idx.
func (idx *InvertedIndex) Clone() *InvertedIndex {
	c := &InvertedIndex{
		postings:    make(map[string][]Posting, len(idx.postings)),
		docs:        make(map[int64]*DocumentRecord, len(idx.docs)),
		byPath:      make(map[string]int64, len(idx.byPath)),
		docTerms:    make(map[int64][]string, len(idx.docTerms)),
		totalLength: idx.totalLength,
		avgLength:   idx.avgLength,
		nextDocID:   idx.nextDocID,
		BuiltAt:     idx.BuiltAt,
	}
	for term, list := range idx.postings {
		c.postings[term] = slices.Clone(list)
	}
	for id, rec := range idx.docs {
		r := *rec
		c.docs[id] = &r
	}
	for p, id := range idx.byPath {
		c.byPath[p] = id
	}
	for id, terms := range idx.docTerms {
		c.docTerms[id] = terms
	}
	return c
}

// AllocateDocID reserves a fresh docId.
func (idx *InvertedIndex) AllocateDocID() int64 {
	id := idx.nextDocID
	idx.nextDocID++
	return id
}

// NextDocID returns the docId the next allocation will return.
func (idx *InvertedIndex) NextDocID() int64 {
	return idx.nextDocID
}

// AddDocument inserts rec and its term statistics. rec.DocID must not be in
// use.
func (idx *InvertedIndex) AddDocument(rec DocumentRecord, stats []TermStat) error {
	if rec.DocID <= 0 {
		return fmt.Errorf("invalid docId %d", rec.DocID)
	}
	if _, exists := idx.docs[rec.DocID]; exists {
		return fmt.Errorf("docId %d already indexed", rec.DocID)
	}
	if other, exists := idx.byPath[rec.RelPath]; exists {
		return fmt.Errorf("path %s already indexed as docId %d", rec.RelPath, other)
	}

	terms := make([]string, 0, len(stats))
	for _, st := range stats {
		if st.Freq <= 0 {
			continue
		}
		idx.insertPosting(st.Term, Posting{DocID: rec.DocID, Freq: st.Freq, FirstOffset: st.FirstOffset})
		terms = append(terms, st.Term)
	}

	r := rec
	idx.docs[rec.DocID] = &r
	idx.byPath[rec.RelPath] = rec.DocID
	idx.docTerms[rec.DocID] = terms
	if rec.DocID >= idx.nextDocID {
		idx.nextDocID = rec.DocID + 1
	}
	idx.totalLength += int64(rec.Length)
	idx.recompute()
	return nil
}

func (idx *InvertedIndex) insertPosting(term string, p Posting) {
	list := idx.postings[term]
	n := len(list)
	if n == 0 || list[n-1].DocID < p.DocID {
		idx.postings[term] = append(list, p)
		return
	}
	i := sort.Search(n, func(i int) bool { return list[i].DocID >= p.DocID })
	list = slices.Insert(list, i, p)
	idx.postings[term] = list
}

// RemoveDocument deletes a document and all of its postings. Terms left with
// no postings are dropped. It reports whether the document existed.
func (idx *InvertedIndex) RemoveDocument(docID int64) bool {
	rec, ok := idx.docs[docID]
	if !ok {
		return false
	}

	for _, term := range idx.docTerms[docID] {
		list := idx.postings[term]
		i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= docID })
		if i < len(list) && list[i].DocID == docID {
			list = slices.Delete(list, i, i+1)
		}
		if len(list) == 0 {
			delete(idx.postings, term)
		} else {
			idx.postings[term] = list
		}
	}

	delete(idx.docTerms, docID)
	delete(idx.byPath, rec.RelPath)
	delete(idx.docs, docID)
	idx.totalLength -= int64(rec.Length)
	idx.recompute()
	return true
}

func (idx *InvertedIndex) recompute() {
	if len(idx.docs) == 0 {
		idx.avgLength = 0
		return
	}
	idx.avgLength = float64(idx.totalLength) / float64(len(idx.docs))
}

// Document returns the record for docID.
func (idx *InvertedIndex) Document(docID int64) (*DocumentRecord, bool) {
	rec, ok := idx.docs[docID]
	return rec, ok
}

// DocumentByPath returns the record for a relative path.
func (idx *InvertedIndex) DocumentByPath(relPath string) (*DocumentRecord, bool) {
	id, ok := idx.byPath[relPath]
	if !ok {
		return nil, false
	}
	return idx.docs[id], true
}

// Documents returns all records ordered by docId.
func (idx *InvertedIndex) Documents() []*DocumentRecord {
	out := make([]*DocumentRecord, 0, len(idx.docs))
	for _, rec := range idx.docs {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *DocumentRecord) int {
		return cmp.Compare(a.DocID, b.DocID)
	})
	return out
}

// Postings returns the postings list of term, ordered by docId.
// The returned slice must not be modified.
func (idx *InvertedIndex) Postings(term string) []Posting {
	return idx.postings[term]
}

// DocFreq returns the number of documents containing term.
func (idx *InvertedIndex) DocFreq(term string) int {
	return len(idx.postings[term])
}

// Terms returns every indexed term in lexical order.
func (idx *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for t := range idx.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// TotalDocuments returns N.
func (idx *InvertedIndex) TotalDocuments() int {
	return len(idx.docs)
}

// AvgDocLength returns the mean document length in terms.
func (idx *InvertedIndex) AvgDocLength() float64 {
	return idx.avgLength
}

// Stats returns summary statistics.
func (idx *InvertedIndex) Stats() IndexStats {
	return IndexStats{
		DocumentCount: len(idx.docs),
		TermCount:     len(idx.postings),
		AvgDocLength:  idx.avgLength,
	}
}

// Validate checks the structural invariants of the index.
func (idx *InvertedIndex) Validate() error {
	var total int64
	for id, rec := range idx.docs {
		if rec.DocID != id {
			return fmt.Errorf("record keyed %d carries docId %d", id, rec.DocID)
		}
		if id >= idx.nextDocID {
			return fmt.Errorf("docId %d not below next docId %d", id, idx.nextDocID)
		}
		if idx.byPath[rec.RelPath] != id {
			return fmt.Errorf("path index out of sync for %s", rec.RelPath)
		}
		total += int64(rec.Length)
	}
	if len(idx.byPath) != len(idx.docs) {
		return fmt.Errorf("path index has %d entries for %d documents", len(idx.byPath), len(idx.docs))
	}
	for term, list := range idx.postings {
		if len(list) == 0 {
			return fmt.Errorf("term %q has an empty postings list", term)
		}
		for i, p := range list {
			if _, ok := idx.docs[p.DocID]; !ok {
				return fmt.Errorf("term %q references unknown docId %d", term, p.DocID)
			}
			if p.Freq <= 0 {
				return fmt.Errorf("term %q has non-positive frequency for docId %d", term, p.DocID)
			}
			if i > 0 && list[i-1].DocID >= p.DocID {
				return fmt.Errorf("postings for %q are not ordered by docId", term)
			}
		}
	}
	if total != idx.totalLength {
		return fmt.Errorf("total length %d does not match records (%d)", idx.totalLength, total)
	}
	return nil
}
