// Package render converts Markdown documents to HTML fragments with image
// references resolved against the content root and outline anchors stamped
// on headings.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/toc"
)

var (
	documentPathKey = parser.NewContextKey()
	outlineKey      = parser.NewContextKey()
)

// Input is one document to render.
type Input struct {
	// Path is the document path below the content root.
	Path string
	// Body is the Markdown body without frontmatter.
	Body string
	// Outline, when non-empty, drives heading id stamping.
	Outline *toc.Outline
}

// Renderer is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

type options struct {
	style      string
	viewerPath string
}

// Option configures a Renderer.
type Option func(*options)

// WithStyle selects the chroma style used for code highlighting. An empty
// name keeps the default.
func WithStyle(name string) Option {
	return func(o *options) {
		if name != "" {
			o.style = name
		}
	}
}

// WithViewerPath sets the page that relative .md links are rewritten to.
func WithViewerPath(p string) Option {
	return func(o *options) {
		o.viewerPath = p
	}
}

// New creates a Renderer that resolves images with assets.
func New(assets *resolve.Resolver, opts ...Option) *Renderer {
	o := options{style: "github", viewerPath: "/viewer"}
	for _, opt := range opts {
		opt(&o)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.style),
				highlighting.WithWrapperRenderer(codeBlockWrapper),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&imageRewriter{assets: assets}, 100),
				util.Prioritized(&linkRewriter{docs: resolve.New(""), viewer: o.viewerPath}, 110),
				util.Prioritized(&headingStamper{}, 200),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)

	return &Renderer{md: md}
}

// Render converts in.Body to an HTML fragment.
func (r *Renderer) Render(in Input) (string, error) {
	pc := parser.NewContext()
	pc.Set(documentPathKey, in.Path)
	pc.Set(outlineKey, in.Outline)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(in.Body), &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("render: convert %s: %w", in.Path, err)
	}
	return buf.String(), nil
}

// codeBlockWrapper tags highlighted blocks with their language so the page
// stylesheet can label them.
func codeBlockWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return
	}
	lang, ok := c.Language()
	if !ok || len(lang) == 0 {
		_, _ = w.WriteString(`<div class="code-block">`)
		return
	}
	_, _ = w.WriteString(`<div class="code-block" data-language="`)
	_, _ = w.Write(util.EscapeHTML(lang))
	_, _ = w.WriteString(`">`)
}
