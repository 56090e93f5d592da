package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/models"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. posts%2Fmd%2Fa.md).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents grouped for the landing page
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	ListingResponse
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Listing(r.Context())
	if err != nil {
		writeError(w, "list documents", "", err)
		return
	}
	total := 0
	for _, g := range groups {
		total += len(g.Documents)
	}
	if groups == nil {
		groups = []models.Group{}
	}
	writeJSON(w, http.StatusOK, ListingResponse{Groups: groups, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a rendered document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentResponse
//	@Success		304		"Not modified"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	doc, err := h.svc.Document(r.Context(), path)
	if err != nil {
		writeError(w, "get document", path, err)
		return
	}
	etag := `"` + doc.Checksum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetOutline handles GET /api/outline/*.
//
//	@Summary		Get the outline of a document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	OutlineResponse
//	@Failure		404		{object}	errResponse
//	@Router			/outline/{path} [get]
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	out, err := h.svc.Outline(r.Context(), path)
	if err != nil {
		writeError(w, "get outline", path, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve an image reference against the content root
//	@Tags			documents
//	@Produce		json
//	@Param			src	query		string	true	"Image reference as written in the document"
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	ResolveResponse
//	@Failure		400	{object}	errResponse
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src, doc := q.Get("src"), q.Get("doc")
	if doc == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'doc' is required"))
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Src:      src,
		Document: doc,
		URL:      h.svc.ResolveImage(src, doc),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across listed documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Rebuild the listing and the search index
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, "refresh", "", err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Groups:    res.Groups,
		Documents: res.Documents,
		Changes:   len(res.Changes),
	})
}
