package store

import "math"

// BM25Config holds the Okapi BM25 parameters.
type BM25Config struct {
	// K1 controls term frequency saturation (default 1.5).
	K1 float64
	// B controls document length normalization (default 0.75).
	B float64
}

// DefaultBM25Config returns k1=1.5, b=0.75.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.5, B: 0.75}
}

// IDF returns ln(1 + (N - df + 0.5) / (df + 0.5)), clamped at zero.
// A term that occurs in no document has IDF 0.
func IDF(totalDocs, docFreq int) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	n, df := float64(totalDocs), float64(docFreq)
	idf := math.Log(1 + (n-df+0.5)/(df+0.5))
	if idf < 0 {
		return 0
	}
	return idf
}

// TermScore returns the BM25 contribution of one query term occurrence.
func (c BM25Config) TermScore(idf float64, tf, docLen int, avgDocLen float64) float64 {
	if tf <= 0 || idf == 0 {
		return 0
	}
	norm := 1.0
	if avgDocLen > 0 {
		norm = 1 - c.B + c.B*float64(docLen)/avgDocLen
	}
	f := float64(tf)
	return idf * f * (c.K1 + 1) / (f + c.K1*norm)
}

// Score computes the BM25 score of one document for the query terms.
// Repeated query terms contribute once per occurrence.
func (c BM25Config) Score(idx *InvertedIndex, queryTerms []string, docID int64) float64 {
	rec, ok := idx.Document(docID)
	if !ok {
		return 0
	}

	n := idx.TotalDocuments()
	avgdl := idx.AvgDocLength()
	var score float64
	for _, term := range queryTerms {
		postings := idx.Postings(term)
		tf := termFreq(postings, docID)
		if tf == 0 {
			continue
		}
		score += c.TermScore(IDF(n, len(postings)), tf, rec.Length, avgdl)
	}
	return score
}

// ScoreAll scores every document containing at least one query term.
// Documents matching no term are absent from the result.
func (c BM25Config) ScoreAll(idx *InvertedIndex, queryTerms []string) map[int64]float64 {
	scores := make(map[int64]float64)

	// Count multiplicity once per distinct term.
	counts := make(map[string]int, len(queryTerms))
	order := make([]string, 0, len(queryTerms))
	for _, t := range queryTerms {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	n := idx.TotalDocuments()
	avgdl := idx.AvgDocLength()
	for _, term := range order {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := IDF(n, len(postings))
		mult := float64(counts[term])
		for _, p := range postings {
			rec, ok := idx.Document(p.DocID)
			if !ok {
				continue
			}
			scores[p.DocID] += mult * c.TermScore(idf, p.Freq, rec.Length, avgdl)
		}
	}
	return scores
}

func termFreq(postings []Posting, docID int64) int {
	lo, hi := 0, len(postings)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if postings[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(postings) && postings[lo].DocID == docID {
		return postings[lo].Freq
	}
	return 0
}
