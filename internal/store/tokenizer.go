package store

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
)

// DefaultStopWords are dropped from non-CJK text: articles and conjunctions.
var DefaultStopWords = []string{"a", "an", "the", "and", "or", "but", "nor"}

// DefaultMinTokenLength is the minimum rune length of a non-CJK term.
const DefaultMinTokenLength = 2

// Token is one normalized term with its byte span in the analyzed text.
type Token struct {
	Term  string
	Start int
	End   int
	CJK   bool
}

// TokenizerOptions configures a Tokenizer.
type TokenizerOptions struct {
	// MinTokenLength drops shorter non-CJK terms (default 2).
	MinTokenLength int
	// StopWords replaces DefaultStopWords when non-nil.
	StopWords []string
	// Dictionary used for CJK segmentation (default BuiltinDictionary()).
	Dictionary *Dictionary
}

// Tokenizer turns text into normalized terms. The same Tokenizer must be used
// for documents and queries. It holds no mutable state and is safe for
// concurrent use.
type Tokenizer struct {
	analyzer *analysis.DefaultAnalyzer
}

// NewTokenizer builds the analysis chain: script-run tokenization, CJK width
// folding, lowercasing, minimum length and stop word removal.
func NewTokenizer(opts TokenizerOptions) *Tokenizer {
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = DefaultMinTokenLength
	}
	if opts.StopWords == nil {
		opts.StopWords = DefaultStopWords
	}
	if opts.Dictionary == nil {
		opts.Dictionary = BuiltinDictionary()
	}

	stopWords := analysis.NewTokenMap()
	for _, w := range opts.StopWords {
		stopWords.AddToken(w)
	}

	return &Tokenizer{
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer: &scriptTokenizer{dict: opts.Dictionary},
			TokenFilters: []analysis.TokenFilter{
				cjk.NewCJKWidthFilter(),
				lowercase.NewLowerCaseFilter(),
				&minLengthFilter{min: opts.MinTokenLength},
				stop.NewStopTokensFilter(stopWords),
			},
		},
	}
}

// Analyze returns the tokens of text in order of appearance.
func (t *Tokenizer) Analyze(text string) []Token {
	stream := t.analyzer.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, Token{
			Term:  string(tok.Term),
			Start: tok.Start,
			End:   tok.End,
			CJK:   tok.Type == analysis.Ideographic,
		})
	}
	return tokens
}

// Tokenize returns the normalized terms of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := t.Analyze(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// TermStat aggregates the occurrences of one term in a document.
type TermStat struct {
	Term        string
	Freq        int
	FirstOffset int
}

// TermStats groups tokens by term, keeping first-occurrence order.
func TermStats(tokens []Token) []TermStat {
	pos := make(map[string]int, len(tokens))
	stats := make([]TermStat, 0, len(tokens))
	for _, tok := range tokens {
		if i, ok := pos[tok.Term]; ok {
			stats[i].Freq++
			continue
		}
		pos[tok.Term] = len(stats)
		stats = append(stats, TermStat{Term: tok.Term, Freq: 1, FirstOffset: tok.Start})
	}
	return stats
}

// IsCJK reports whether r belongs to a CJK script run.
func IsCJK(r rune) bool {
	switch {
	case unicode.Is(unicode.Han, r),
		unicode.Is(unicode.Hiragana, r),
		unicode.Is(unicode.Katakana, r),
		unicode.Is(unicode.Hangul, r):
		return true
	case r == 'ー', r == '々':
		// Prolonged sound mark and iteration mark sit in the Common script.
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// scriptTokenizer implements analysis.Tokenizer. It splits input into maximal
// CJK and non-CJK runs; CJK runs are segmented with the dictionary, other runs
// are split on every rune that is not a letter, digit or mark.
type scriptTokenizer struct {
	dict *Dictionary
}

// Tokenize implements analysis.Tokenizer.
func (t *scriptTokenizer) Tokenize(input []byte) analysis.TokenStream {
	stream := make(analysis.TokenStream, 0, len(input)/4)
	position := 1

	emit := func(start, end int, typ analysis.TokenType) {
		stream = append(stream, &analysis.Token{
			Term:     append([]byte(nil), input[start:end]...),
			Start:    start,
			End:      end,
			Position: position,
			Type:     typ,
		})
		position++
	}

	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRune(input[i:])
		switch {
		case IsCJK(r):
			j := i + size
			for j < len(input) {
				r2, s2 := utf8.DecodeRune(input[j:])
				if !IsCJK(r2) {
					break
				}
				j += s2
			}
			for _, seg := range t.dict.segmentRun(string(input[i:j])) {
				emit(i+seg.start, i+seg.end, analysis.Ideographic)
			}
			i = j
		case isWordRune(r):
			j := i + size
			for j < len(input) {
				r2, s2 := utf8.DecodeRune(input[j:])
				if !isWordRune(r2) || IsCJK(r2) {
					break
				}
				j += s2
			}
			emit(i, j, analysis.AlphaNumeric)
			i = j
		default:
			i += size
		}
	}
	return stream
}

// minLengthFilter drops non-CJK tokens shorter than min runes. CJK words are
// meaningful at a single rune and always pass.
type minLengthFilter struct {
	min int
}

// Filter implements analysis.TokenFilter.
func (f *minLengthFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if tok.Type != analysis.Ideographic && utf8.RuneCount(tok.Term) < f.min {
			continue
		}
		out = append(out, tok)
	}
	return out
}
