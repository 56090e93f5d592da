// Package parser splits a Markdown document into frontmatter and body and
// derives its title and outline.
package parser

import (
	"bytes"
	"path"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/starford/furyload/internal/toc"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Outline     *toc.Outline
	// NoTOC is set by a "toc: false" frontmatter entry.
	NoTOC bool
}

// Parse extracts frontmatter, body, title and outline from raw Markdown bytes.
// It never fails on malformed input: broken frontmatter is treated as body.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	outline := toc.Extract(body)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, outline),
		Outline:     outline,
		NoTOC:       tocDisabled(fm),
	}
}

// splitFrontmatter separates YAML frontmatter from the Markdown body. If no
// frontmatter is found, or it does not parse, the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return nil, string(data)
	}
	if len(fm) == 0 {
		return nil, string(rest)
	}
	return fm, strings.TrimLeft(string(rest), "\r\n")
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// outline's main title, otherwise empty string.
func deriveTitle(fm map[string]any, outline *toc.Outline) string {
	if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return outline.TitleText()
}

func tocDisabled(fm map[string]any) bool {
	v, ok := fm["toc"].(bool)
	return ok && !v
}

// TitleFromPath returns the file name of p without its .md extension.
func TitleFromPath(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}
