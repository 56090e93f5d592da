// Package resolve rewrites asset references found in a rendered document so
// they point at the remote content root instead of the viewer's location.
package resolve

import (
	"strings"
)

// OverflowFunc is called when a "../" reference climbs above the content
// root. The resolver clamps at the root either way.
type OverflowFunc func(src, documentPath string)

// Resolver maps image references to absolute URLs below a fixed root.
type Resolver struct {
	root       string
	onOverflow OverflowFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOverflowHook registers fn to be told about "../" overflow.
func WithOverflowHook(fn OverflowFunc) Option {
	return func(r *Resolver) {
		r.onOverflow = fn
	}
}

// New returns a Resolver rooted at root (a URL or path prefix).
func New(root string, opts ...Option) *Resolver {
	r := &Resolver{root: strings.TrimRight(strings.TrimSpace(root), "/")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the content root without a trailing slash.
func (r *Resolver) Root() string {
	return r.root
}

// IsAbsolute reports whether src is left untouched by Resolve.
func IsAbsolute(src string) bool {
	return src == "" ||
		strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "//") ||
		strings.HasPrefix(src, "data:")
}

// Resolve returns the retrieval URL for src as referenced from the document
// at documentPath. It never fails: every input has a defined output.
func (r *Resolver) Resolve(src, documentPath string) string {
	if IsAbsolute(src) {
		return src
	}

	baseDir := dir(documentPath)

	switch {
	case strings.HasPrefix(src, "./"):
		return join(r.root, baseDir, src[2:])

	case src == ".." || strings.HasPrefix(src, "../"):
		stack := split(baseDir)
		rest := strings.Split(src, "/")
		overflow := false
		for len(rest) > 0 && rest[0] == ".." {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			} else {
				overflow = true
			}
			rest = rest[1:]
		}
		if overflow && r.onOverflow != nil {
			r.onOverflow(src, documentPath)
		}
		return join(r.root, strings.Join(stack, "/"), strings.Join(rest, "/"))

	case strings.HasPrefix(src, "/"):
		return join(r.root, src)

	default:
		return join(r.root, baseDir, src)
	}
}

// URL returns the retrieval URL of a document path.
func (r *Resolver) URL(documentPath string) string {
	return join(r.root, documentPath)
}

// dir strips the final /segment (the file name) from p.
func dir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func split(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// join concatenates parts with exactly one slash at each join point.
func join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			p = strings.TrimLeft(p, "/")
			if p == "" {
				continue
			}
			if !strings.HasSuffix(b.String(), "/") {
				b.WriteByte('/')
			}
		}
		b.WriteString(p)
	}
	return b.String()
}
