// Package toc derives a navigable outline from raw Markdown by scanning lines,
// without building a full syntax tree.
package toc

import (
	"regexp"
	"strconv"
	"strings"
)

// AnchorPrefix prefixes every generated anchor id.
const AnchorPrefix = "toc-"

// MaxLevel is the deepest ATX heading level the extractor recognises.
const MaxLevel = 3

var atxRe = regexp.MustCompile(`^(#{1,3})\s+(.+?)(?:\s+#+)?$`)

// Heading is a recognised heading in document order.
type Heading struct {
	Level       int    `json:"level"`
	Text        string `json:"text"`
	IsMainTitle bool   `json:"is_main_title,omitempty"`
}

// Entry is one outline row ready for list rendering.
type Entry struct {
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
	Level  int    `json:"level"`
	Indent int    `json:"indent"`
}

// Outline is the result of Extract.
type Outline struct {
	// Title is the main title heading, nil when the first heading is
	// deeper than level 2 or there is no heading at all.
	Title *Heading `json:"title,omitempty"`
	// Headings holds every recognised heading, title included.
	Headings []Heading `json:"-"`
	// Entries is nil when fewer than two headings were recognised.
	Entries []Entry `json:"entries"`
}

// Empty reports whether there is no outline to show.
func (o *Outline) Empty() bool {
	return o == nil || len(o.Entries) == 0
}

// TitleText returns the main title text or "".
func (o *Outline) TitleText() string {
	if o == nil || o.Title == nil {
		return ""
	}
	return o.Title.Text
}

// Anchor returns the anchor id of the i-th outline entry.
func Anchor(i int) string {
	return AnchorPrefix + strconv.Itoa(i)
}

// Extract scans markdown and returns its outline. Lines inside fenced code
// and block quotes are ignored. An unterminated fence suppresses detection
// for the rest of the document.
func Extract(markdown string) *Outline {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")

	var headings []Heading
	var fence byte

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if m := fenceMarker(trimmed); m != 0 {
			switch fence {
			case 0:
				fence = m
			case m:
				fence = 0
			}
			continue
		}
		if fence != 0 || strings.HasPrefix(trimmed, ">") {
			continue
		}

		if h, ok := parseATX(trimmed); ok {
			headings = append(headings, h)
			continue
		}

		if trimmed != "" && i+1 < len(lines) {
			if level := setextLevel(strings.TrimSpace(lines[i+1])); level > 0 {
				headings = append(headings, Heading{Level: level, Text: trimmed})
				i++
			}
		}
	}

	return build(headings)
}

func build(headings []Heading) *Outline {
	out := &Outline{Headings: headings}
	if len(headings) == 0 {
		return out
	}

	rest := headings
	if headings[0].Level <= 2 {
		headings[0].IsMainTitle = true
		title := headings[0]
		out.Title = &title
		rest = headings[1:]
	}

	if len(headings) <= 1 {
		return out
	}

	out.Entries = make([]Entry, len(rest))
	for i, h := range rest {
		out.Entries[i] = Entry{
			Text:   h.Text,
			Anchor: Anchor(i),
			Level:  h.Level,
			Indent: max(0, h.Level-2),
		}
	}
	return out
}

// fenceMarker returns '`' or '~' when line opens or closes a fenced block.
func fenceMarker(line string) byte {
	switch {
	case strings.HasPrefix(line, "```"):
		return '`'
	case strings.HasPrefix(line, "~~~"):
		return '~'
	}
	return 0
}

func parseATX(line string) (Heading, bool) {
	m := atxRe.FindStringSubmatch(line)
	if m == nil {
		return Heading{}, false
	}
	text := strings.TrimSpace(m[2])
	if text == "" {
		return Heading{}, false
	}
	return Heading{Level: len(m[1]), Text: text}, true
}

// setextLevel returns 1 for a run of '=', 2 for a run of '-', else 0.
func setextLevel(line string) int {
	if line == "" {
		return 0
	}
	switch {
	case strings.Trim(line, "=") == "":
		return 1
	case strings.Trim(line, "-") == "":
		return 2
	}
	return 0
}
