package tts

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	markdown    = goldmark.New()
)

// SpeechText reduces card text that may contain HTML and Markdown to the plain words that
// should be spoken. Code blocks and link targets are dropped; link labels are kept.
func SpeechText(input string) string {
	// StrictPolicy escapes the text it keeps.
	stripped := html.UnescapeString(stripPolicy.Sanitize(input))

	source := []byte(stripped)
	doc := markdown.Parser().Parse(gtext.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(buf.String()), " ")
}
