// Package markdown provides goldmark-backed analysis of document bodies.
package markdown

import (
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Range is a half-open byte range within a body.
type Range struct {
	Start int
	Stop  int
}

// ParseBody parses a markdown body (frontmatter already removed).
func ParseBody(body []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(body))
}

// CodeRanges returns the byte ranges covered by fenced code blocks, indented
// code blocks and inline code spans, sorted by start offset.
func CodeRanges(body []byte) []Range {
	root := ParseBody(body)
	var out []Range
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out = append(out, Range{Start: seg.Start, Stop: seg.Stop})
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					out = append(out, Range{Start: t.Segment.Start, Stop: t.Segment.Stop})
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// MaskCode returns a copy of body with every code byte replaced by a space.
// Newlines are kept so line numbers stay valid.
func MaskCode(body []byte) []byte {
	out := make([]byte, len(body))
	copy(out, body)
	for _, r := range CodeRanges(body) {
		for i := r.Start; i < r.Stop && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return out
}
