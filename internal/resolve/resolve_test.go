package resolve

import (
	"testing"
)

const root = "https://raw.example.com/owner/site/main"

func TestResolve_AbsoluteUnchanged(t *testing.T) {
	r := New(root)
	for _, src := range []string{
		"http://cdn.example.com/a.png",
		"https://cdn.example.com/a.png",
		"",
	} {
		if got := r.Resolve(src, "posts/a/b.md"); got != src {
			t.Errorf("Resolve(%q) = %q, want unchanged", src, got)
		}
	}
}

func TestResolve_FixedPoint(t *testing.T) {
	r := New(root)
	once := r.Resolve("img.png", "posts/a/b.md")
	twice := r.Resolve(once, "posts/a/b.md")
	if once != twice {
		t.Errorf("second resolve = %q, want %q", twice, once)
	}
}

func TestResolve_Rules(t *testing.T) {
	r := New(root)
	tests := []struct {
		name string
		src  string
		doc  string
		want string
	}{
		{"dot slash", "./img.png", "posts/a/b.md", root + "/posts/a/img.png"},
		{"parent", "../img.png", "posts/a/b/c.md", root + "/posts/a/img.png"},
		{"two parents", "../../img/x.png", "posts/a/b/c.md", root + "/posts/img/x.png"},
		{"rooted", "/img.png", "posts/a/b.md", root + "/img.png"},
		{"bare", "img.png", "posts/a/b.md", root + "/posts/a/img.png"},
		{"bare nested", "images/x.png", "posts/a/b.md", root + "/posts/a/images/x.png"},
		{"doc without dir", "img.png", "README.md", root + "/img.png"},
		{"dot slash without dir", "./img.png", "README.md", root + "/img.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.src, tt.doc); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.src, tt.doc, got, tt.want)
			}
		})
	}
}

func TestResolve_TrailingSlashRoot(t *testing.T) {
	r := New(root + "/")
	if got := r.Resolve("/img.png", "posts/a.md"); got != root+"/img.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ParentOverflowClamps(t *testing.T) {
	var calls int
	r := New(root, WithOverflowHook(func(src, doc string) {
		calls++
		if src != "../../../img.png" || doc != "posts/a.md" {
			t.Errorf("hook args = %q, %q", src, doc)
		}
	}))
	got := r.Resolve("../../../img.png", "posts/a.md")
	if got != root+"/img.png" {
		t.Errorf("overflow = %q, want %q", got, root+"/img.png")
	}
	if calls != 1 {
		t.Errorf("hook calls = %d, want 1", calls)
	}
}

func TestResolve_NoHookOnExactClimb(t *testing.T) {
	r := New(root, WithOverflowHook(func(string, string) {
		t.Error("hook should not fire")
	}))
	if got := r.Resolve("../x.png", "posts/a.md"); got != root+"/x.png" {
		t.Errorf("got %q", got)
	}
}

func TestURL(t *testing.T) {
	r := New(root)
	if got := r.URL("posts/md/guide.md"); got != root+"/posts/md/guide.md" {
		t.Errorf("URL = %q", got)
	}
}

func TestNormalizeRoot(t *testing.T) {
	tests := map[string]string{
		"":            "posts/",
		"   ":         "posts/",
		"posts":       "posts/",
		"./posts":     "posts/",
		"/posts/":     "posts/",
		"docs/a.md":   "docs/a.md",
		" ./notes/x ": "notes/x/",
	}
	for in, want := range tests {
		if got := NormalizeRoot(in); got != want {
			t.Errorf("NormalizeRoot(%q) = %q, want %q", in, got, want)
		}
	}
}
