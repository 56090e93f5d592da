package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// AssetHandler serves files of a local content directory so that images
// referenced by documents resolve when content is not hosted remotely.
type AssetHandler struct {
	root string
}

// NewAssetHandler creates a handler rooted at the content directory.
func NewAssetHandler(root string) *AssetHandler {
	return &AssetHandler{root: root}
}

// safePath validates a slash-separated path below the root and returns its
// absolute form. Hidden segments (".git", ".env") are rejected.
func (h *AssetHandler) safePath(rel string) (string, bool) {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", false
	}
	cleaned := path.Clean(rel)
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	abs := filepath.Join(h.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", false
	}
	return abs, true
}

// ServeFile handles GET /raw/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, ok := h.safePath(chi.URLParam(r, "*"))
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
