package parser

import (
	"strings"

	"github.com/starford/anchorlink/internal/models"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractHeadings parses a Markdown body (frontmatter already removed) and
// returns its ATX and setext headings in document order.
func ExtractHeadings(body []byte) []models.Heading {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var out []models.Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		txt := strings.TrimSpace(inlineText(h, body))
		if txt != "" {
			out = append(out, models.Heading{Level: h.Level, Text: txt})
		}
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// inlineText concatenates the literal text under n, dropping emphasis and
// code-span markers.
func inlineText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *gmast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *gmast.String:
			sb.Write(v.Value)
		default:
			sb.WriteString(inlineText(c, source))
		}
	}
	return sb.String()
}
