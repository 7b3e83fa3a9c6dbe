package store

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

// supplementDict holds Han-script words the bundled Chinese dictionary lacks:
// retrieval vocabulary and common Japanese kanji compounds.
//
//go:embed dict/cjk.dict
var supplementDict string

// defaultUserFreq is the frequency of a user word listed without one.
const defaultUserFreq = 3

// Dictionary segments CJK text. It wraps a gse segmenter loaded with the
// embedded simplified Chinese dictionary, the supplement and optional user
// entries. A Dictionary is read-only after construction and safe for
// concurrent use.
type Dictionary struct {
	seg *gse.Segmenter
	// user holds the normalized user entries so copies can be rebuilt.
	user []string
}

var loadBuiltinDictionary = sync.OnceValue(func() *Dictionary {
	d, err := newDictionary(nil)
	// The dictionaries are compiled into the binary; failing to load them is a build defect.
	if err != nil {
		panic(fmt.Sprintf("store: embedded dictionary: %v", err))
	}
	return d
})

func newDictionary(user []string) (*Dictionary, error) {
	seg := &gse.Segmenter{SkipLog: true}
	if err := seg.LoadDictEmbed("zh_s"); err != nil {
		return nil, fmt.Errorf("load embedded dictionary: %w", err)
	}
	supplement, err := parseDictionary(strings.NewReader(supplementDict))
	if err != nil {
		return nil, fmt.Errorf("supplement: %w", err)
	}
	if err := seg.LoadDictStr(strings.Join(supplement, "\n")); err != nil {
		return nil, fmt.Errorf("load supplement: %w", err)
	}
	if len(user) > 0 {
		if err := seg.LoadDictStr(strings.Join(user, "\n")); err != nil {
			return nil, fmt.Errorf("load user entries: %w", err)
		}
	}
	return &Dictionary{seg: seg, user: user}, nil
}

// BuiltinDictionary returns the dictionary embedded in the binary.
func BuiltinDictionary() *Dictionary {
	return loadBuiltinDictionary()
}

// WithUserDictionary returns a copy of d extended with the entries in r.
// Each line is "word [freq [pos]]"; a missing frequency defaults to 3.
func (d *Dictionary) WithUserDictionary(r io.Reader) (*Dictionary, error) {
	entries, err := parseDictionary(r)
	if err != nil {
		return nil, err
	}
	return newDictionary(append(append([]string(nil), d.user...), entries...))
}

// LoadUserDictionary extends the builtin dictionary with the file at path.
func LoadUserDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user dictionary: %w", err)
	}
	defer f.Close()

	d, err := BuiltinDictionary().WithUserDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load user dictionary %s: %w", path, err)
	}
	return d, nil
}

// Contains reports whether word is a dictionary entry.
func (d *Dictionary) Contains(word string) bool {
	_, _, ok := d.seg.Find(word)
	return ok
}

// parseDictionary validates "word [freq [pos]]" lines and returns them as
// "word freq" entries. Blank lines and # comments are skipped.
func parseDictionary(r io.Reader) ([]string, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		freq := defaultUserFreq
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("line %d: invalid frequency %q", line, fields[1])
			}
			freq = n
		}
		entry := fields[0] + " " + strconv.Itoa(freq)
		if len(fields) > 2 {
			entry += " " + fields[2]
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// segment is a word produced by the segmenter, in byte offsets of the run.
type segment struct {
	start, end int
	known      bool
}

// segmentRun splits a run of CJK text into words. The max-probability path
// over the dictionary DAG comes from gse; pieces that are not dictionary
// words are broken into runes, and consecutive unknown runes become
// overlapping bigrams (or a unigram when the stretch is one rune long).
func (d *Dictionary) segmentRun(run string) []segment {
	if run == "" {
		return nil
	}

	var out []segment
	var unknown []int // byte offsets of buffered unknown runes

	flush := func() {
		switch len(unknown) {
		case 0:
		case 1:
			out = append(out, segment{start: unknown[0], end: runeEnd(run, unknown[0])})
		default:
			for k := 0; k+1 < len(unknown); k++ {
				out = append(out, segment{start: unknown[k], end: runeEnd(run, unknown[k+1])})
			}
		}
		unknown = unknown[:0]
	}
	markUnknown := func(from, to int) {
		for i := from; i < to; {
			unknown = append(unknown, i)
			_, size := utf8.DecodeRuneInString(run[i:])
			i += size
		}
	}

	pos := 0
	for _, word := range d.seg.Cut(run, false) {
		if word == "" {
			continue
		}
		i := strings.Index(run[pos:], word)
		if i < 0 {
			continue
		}
		start, end := pos+i, pos+i+len(word)
		// Text the segmenter skipped is treated as unknown.
		markUnknown(pos, start)
		if d.Contains(word) {
			flush()
			out = append(out, segment{start: start, end: end, known: true})
		} else {
			markUnknown(start, end)
		}
		pos = end
	}
	markUnknown(pos, len(run))
	flush()
	return out
}

func runeEnd(s string, i int) int {
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size
}
