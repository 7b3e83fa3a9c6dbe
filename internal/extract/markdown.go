package extract

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown returns the visible text of a Markdown document and the
// text of its first level-1 heading.
func (e *Extractor) extractMarkdown(source []byte) (string, string) {
	root := e.markdown.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	var title strings.Builder
	inTitle := false
	titleDone := false

	write := func(s string) {
		sb.WriteString(s)
		if inTitle {
			title.WriteString(s)
		}
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && !titleDone {
				inTitle = entering
				if !entering {
					titleDone = title.Len() > 0
				}
			}
		case *ast.Text:
			if entering {
				write(string(node.Segment.Value(source)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					write(" ")
				}
			}
		case *ast.String:
			if entering {
				write(string(node.Value))
			}
		case *ast.AutoLink:
			if entering {
				write(string(node.Label(source)))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(source))
				}
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		if !entering && n.Type() == ast.TypeBlock && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String()), strings.TrimSpace(title.String())
}
