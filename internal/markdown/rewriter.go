// Package markdown renders assistant messages to HTML, resolving inline
// citation markers of the form ^[DocumentName] into numbered superscript
// references. Markers naming documents outside the citation lookup are left
// as literal text.
package markdown

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/tanmvo/skate-ai-2-sub002/internal/citations"
)

// CitationReference is an inline node for one resolved citation marker.
type CitationReference struct {
	gast.BaseInline
	Name       string
	Number     int
	DocumentID string
}

// KindCitationReference is the node kind of CitationReference.
var KindCitationReference = gast.NewNodeKind("CitationReference")

func (n *CitationReference) Kind() gast.NodeKind { return KindCitationReference }

func (n *CitationReference) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Name":   n.Name,
		"Number": strconv.Itoa(n.Number),
	}, nil)
}

var lookupKey = parser.NewContextKey()

// Enabled reports whether lookup can resolve any marker. Callers may skip the
// citation stage entirely when it returns false; Render does the equivalent
// short-circuit on its own.
func Enabled(lookup citations.Lookup) bool {
	return len(lookup) > 0
}

// citationParser parses ^[DocumentName] inline, triggered on '^' the way the
// footnote extension triggers on its marker.
type citationParser struct{}

func (p *citationParser) Trigger() []byte {
	return []byte{'^'}
}

func (p *citationParser) Parse(_ gast.Node, block text.Reader, pc parser.Context) gast.Node {
	lookup, _ := pc.Get(lookupKey).(citations.Lookup)
	if len(lookup) == 0 {
		return nil
	}

	line, _ := block.PeekLine()
	if len(line) < 4 || line[0] != '^' || line[1] != '[' {
		return nil
	}
	end := bytes.IndexByte(line[2:], ']')
	if end < 0 || end == 0 {
		return nil
	}
	// Names are trimmed the same way the extractor trims them, so a marker
	// that produced a numbered entry always resolves here.
	name := strings.TrimSpace(string(line[2 : 2+end]))
	if name == "" {
		return nil
	}

	entry, ok := lookup[name]
	if !ok {
		// Unknown document name: leave the marker as literal text.
		return nil
	}

	block.Advance(end + 3)
	return &CitationReference{
		Name:       name,
		Number:     entry.CitationNumber,
		DocumentID: entry.DocumentID,
	}
}

// citationHTMLRenderer renders CitationReference nodes as superscript links.
type citationHTMLRenderer struct{}

func (r *citationHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCitationReference, r.renderCitation)
}

func (r *citationHTMLRenderer) renderCitation(w util.BufWriter, _ []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		return gast.WalkContinue, nil
	}
	n := node.(*CitationReference)
	_, _ = w.WriteString(`<sup class="citation"><a href="#citation-`)
	_, _ = w.WriteString(strconv.Itoa(n.Number))
	_, _ = w.WriteString(`" data-document-id="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.DocumentID)))
	_, _ = w.WriteString(`" title="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Name)))
	_, _ = fmt.Fprintf(w, `">[%d]</a></sup>`, n.Number)
	return gast.WalkContinue, nil
}

// citationExtension wires the parser and renderer into goldmark.
type citationExtension struct{}

func (e *citationExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&citationParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&citationHTMLRenderer{}, 500),
	))
}

// Renderer converts assistant markdown to HTML. Safe for concurrent use; the
// citation lookup travels through the parse context, not the renderer.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a renderer with citation support.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(&citationExtension{}),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render converts content to HTML, resolving citation markers against lookup.
// A nil or empty lookup renders every marker literally.
func (r *Renderer) Render(content string, lookup citations.Lookup) (string, error) {
	ctx := parser.NewContext()
	if Enabled(lookup) {
		ctx.Set(lookupKey, lookup)
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}
