package mcpserver

// ConventionsURI identifies the conventions resource.
const ConventionsURI = "furyload://conventions"

// Conventions describes how documents are laid out and how references
// inside them are resolved, for LLM consumers that read or cite documents.
const Conventions = `# furyload Document Conventions

## Layout

- Documents live below the document root (default ` + "`posts/`" + `) in one
  directory per category: ` + "`posts/<category>/<name>.md`" + `.
- Only ` + "`.md`" + ` files directly inside a category directory are listed.
- Categories are grouped into titled sections by the listing file
  (` + "`properties/main-config.yaml`" + `). Files named in its ` + "`exclude`" + ` list are hidden.
- A document's title is its frontmatter ` + "`title`" + `, else its first level 1 or 2
  heading, else the file name without ` + "`.md`" + `.

## Image references

Image sources are resolved against the content root:

| Written as | Resolves to |
|---|---|
| ` + "`http://…`, `https://…`, `//…`, `data:…`" + ` | unchanged |
| ` + "`./img/a.png`" + ` | ` + "`<root>/<document dir>/img/a.png`" + ` |
| ` + "`../shared/a.png`" + ` | one directory up per leading ` + "`..`" + `, never above the root |
| ` + "`/assets/a.png`" + ` | ` + "`<root>/assets/a.png`" + ` |
| ` + "`img/a.png`" + ` | ` + "`<root>/<document dir>/img/a.png`" + ` |

Use the ` + "`resolve_image`" + ` tool to check a reference.

## Outline

- Headings of level 1 to 3 (ATX ` + "`#`" + ` or setext underlines) form the outline.
  Headings inside fenced code or block quotes are ignored.
- The first heading is the main title when it is level 1 or 2 and is not part
  of the outline.
- Outline entries get anchors ` + "`toc-0`, `toc-1`, …" + ` in order. A document with fewer
  than two headings has no outline.
- ` + "`toc: false`" + ` in the frontmatter, or ` + "`no_toc: true`" + ` for the document in the
  listing file, switches the outline off.

## Example

` + "```" + `markdown
---
title: Vim Basics
---

# Vim Basics

![modes](./img/modes.png)

## Modes

## Motions

### Word motions
` + "```" + `
`
