package extract

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	htmlchar "github.com/blevesearch/bleve/v2/analysis/char/html"
)

var (
	htmlTitleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlHeadingRe = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	htmlSkipRe    = regexp.MustCompile(`(?is)<(script|style|head)[^>]*>.*?</(script|style|head)>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankLinesRe  = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
	spaceRunRe    = regexp.MustCompile(`[ \t\r\f\v]+`)
)

func newHTMLFilter() analysis.CharFilter {
	f, err := htmlchar.CharFilterConstructor(nil, nil)
	if err != nil {
		// The constructor only fails on a bad replacement setting.
		panic(err)
	}
	return f
}

// extractHTML strips markup, scripts and styles, decodes entities and
// returns the text with the document title (<title>, else the first <h1>).
func (e *Extractor) extractHTML(source []byte) (string, string) {
	title := ""
	if m := htmlTitleRe.FindSubmatch(source); m != nil {
		title = e.htmlText(m[1])
	}
	if title == "" {
		if m := htmlHeadingRe.FindSubmatch(source); m != nil {
			title = e.htmlText(m[1])
		}
	}

	body := htmlCommentRe.ReplaceAll(source, nil)
	body = htmlSkipRe.ReplaceAll(body, nil)
	return e.htmlText(body), title
}

func (e *Extractor) htmlText(fragment []byte) string {
	s := stdhtml.UnescapeString(string(e.html.Filter(fragment)))
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
