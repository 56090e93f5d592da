package resolve

import (
	"regexp"
	"strings"
)

// DefaultDocumentRoot is used when no document root is configured.
const DefaultDocumentRoot = "posts/"

var extRe = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)

// NormalizeRoot converts the assorted spellings of a document root
// ("posts", "./posts", "/posts/") to the canonical "posts/" form. Paths that
// end in a file extension are returned without a trailing slash.
func NormalizeRoot(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultDocumentRoot
	}
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if !extRe.MatchString(p) && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
