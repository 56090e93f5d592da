package render

import (
	"net/url"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/toc"
)

// OriginalSrcAttr keeps the unresolved image reference for the page script,
// which shows it in the placeholder when the image fails to load.
const OriginalSrcAttr = "data-original-src"

// imageRewriter points every image at the content root.
type imageRewriter struct {
	assets *resolve.Resolver
}

func (t *imageRewriter) Transform(node *ast.Document, _ text.Reader, pc parser.Context) {
	docPath, _ := pc.Get(documentPathKey).(string)

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		src := string(img.Destination)
		resolved := t.assets.Resolve(src, docPath)
		if resolved != src {
			img.SetAttributeString(OriginalSrcAttr, []byte(src))
			img.Destination = []byte(resolved)
		}
		return ast.WalkContinue, nil
	})
}

// linkRewriter sends relative links to other Markdown documents through the
// viewer page.
type linkRewriter struct {
	docs   *resolve.Resolver
	viewer string
}

func (t *linkRewriter) Transform(node *ast.Document, _ text.Reader, pc parser.Context) {
	docPath, _ := pc.Get(documentPathKey).(string)

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if resolve.IsAbsolute(dest) || strings.HasPrefix(dest, "#") {
			return ast.WalkContinue, nil
		}
		target, fragment, _ := strings.Cut(dest, "#")
		if !strings.HasSuffix(target, ".md") {
			return ast.WalkContinue, nil
		}
		target = strings.TrimPrefix(t.docs.Resolve(target, docPath), "/")
		out := t.viewer + "?file=" + url.QueryEscape(target)
		if fragment != "" {
			out += "#" + fragment
		}
		link.Destination = []byte(out)
		return ast.WalkContinue, nil
	})
}

// headingStamper assigns outline anchors to rendered headings. Only the
// headings the line scanner can see are stamped (levels 1-3, outside block
// quotes, nested list items included), and the main title is skipped, so ids
// line up with the outline entries.
type headingStamper struct{}

func (t *headingStamper) Transform(node *ast.Document, _ text.Reader, pc parser.Context) {
	outline, _ := pc.Get(outlineKey).(*toc.Outline)
	if outline.Empty() {
		return
	}

	seenFirst := false
	next := 0
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if next >= len(outline.Entries) {
			return ast.WalkStop, nil
		}
		if _, ok := n.(*ast.Blockquote); ok {
			return ast.WalkSkipChildren, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > toc.MaxLevel {
			return ast.WalkContinue, nil
		}
		if !seenFirst {
			seenFirst = true
			if h.Level <= 2 && outline.Title != nil {
				return ast.WalkSkipChildren, nil
			}
		}
		h.SetAttributeString("id", []byte(toc.Anchor(next)))
		next++
		return ast.WalkSkipChildren, nil
	})
}
