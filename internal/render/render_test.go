package render

import (
	"strings"
	"testing"

	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/toc"
)

const root = "https://raw.example.com/o/r/main"

func render(t *testing.T, path, body string) string {
	t.Helper()
	r := New(resolve.New(root))
	out, err := r.Render(Input{Path: path, Body: body, Outline: toc.Extract(body)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestRender_ImagesResolved(t *testing.T) {
	out := render(t, "posts/md/guide.md", "![shot](./img/a.png)\n\n![abs](https://cdn.example.com/b.png)\n")
	if !strings.Contains(out, `src="`+root+`/posts/md/img/a.png"`) {
		t.Errorf("relative image not resolved:\n%s", out)
	}
	if !strings.Contains(out, `data-original-src="./img/a.png"`) {
		t.Errorf("original src not kept:\n%s", out)
	}
	if !strings.Contains(out, `src="https://cdn.example.com/b.png"`) {
		t.Errorf("absolute image changed:\n%s", out)
	}
	if strings.Count(out, OriginalSrcAttr) != 1 {
		t.Errorf("absolute image should not carry %s:\n%s", OriginalSrcAttr, out)
	}
}

func TestRender_HeadingAnchors(t *testing.T) {
	out := render(t, "posts/a.md", "# Title\n\n## A\n\n#### Deep\n\n> ## Quoted\n\n## B\n")
	if strings.Contains(out, `<h1 id=`) {
		t.Errorf("main title must not be stamped:\n%s", out)
	}
	if !strings.Contains(out, `<h2 id="toc-0">A</h2>`) {
		t.Errorf("missing toc-0:\n%s", out)
	}
	if !strings.Contains(out, `<h2 id="toc-1">B</h2>`) {
		t.Errorf("missing toc-1:\n%s", out)
	}
	if strings.Contains(out, `<h4 id=`) {
		t.Errorf("deep heading must not be stamped:\n%s", out)
	}
}

func TestRender_HeadingInsideListItem(t *testing.T) {
	body := "# Title\n\n1. step\n\n   ## Inside list\n\n## B\n"
	outline := toc.Extract(body)
	if len(outline.Entries) != 2 || outline.Entries[1].Text != "B" {
		t.Fatalf("unexpected outline: %+v", outline.Entries)
	}

	out := render(t, "posts/a.md", body)
	if !strings.Contains(out, `<h2 id="toc-0">Inside list</h2>`) {
		t.Errorf("nested heading not stamped:\n%s", out)
	}
	if !strings.Contains(out, `<h2 id="toc-1">B</h2>`) {
		t.Errorf("heading after list should be toc-1:\n%s", out)
	}
}

func TestRender_NoOutlineNoAnchors(t *testing.T) {
	r := New(resolve.New(root))
	body := "# Title\n\n## A\n\n## B\n"
	out, err := r.Render(Input{Path: "posts/a.md", Body: body})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, `id="toc-`) {
		t.Errorf("anchors stamped without an outline:\n%s", out)
	}
}

func TestRender_CodeBlockLanguage(t *testing.T) {
	out := render(t, "posts/a.md", "```go\nfunc main() {}\n```\n")
	if !strings.Contains(out, `data-language="go"`) {
		t.Errorf("missing data-language:\n%s", out)
	}
}

func TestRender_MarkdownLinksGoThroughViewer(t *testing.T) {
	out := render(t, "posts/md/guide.md", "[next](./other.md#setup) [site](https://example.com/x.md) [top](#top)\n")
	if !strings.Contains(out, "/viewer?file=posts%2Fmd%2Fother.md#setup") {
		t.Errorf("relative .md link not rewritten:\n%s", out)
	}
	if !strings.Contains(out, `href="https://example.com/x.md"`) {
		t.Errorf("absolute link changed:\n%s", out)
	}
	if !strings.Contains(out, `href="#top"`) {
		t.Errorf("fragment link changed:\n%s", out)
	}
}

func TestRender_EmptyBody(t *testing.T) {
	out := render(t, "posts/a.md", "")
	if out != "" {
		t.Errorf("empty body rendered %q", out)
	}
}
