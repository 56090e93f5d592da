// Package web serves the HTML pages: the landing page listing documents by
// group and the viewer page rendering one document.
package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/furyload/internal/apperr"
	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/models"
	"github.com/starford/furyload/internal/toc"
)

// DefaultSiteTitle is appended to every page title.
const DefaultSiteTitle = "Main Max: Fury Load"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options configures the pages.
type Options struct {
	SiteTitle string
	// EventsURL enables live reload when non-empty.
	EventsURL string
}

// Handler renders the HTML pages.
type Handler struct {
	svc  *docservice.Service
	opts Options
	tmpl *template.Template
}

// New parses the embedded templates.
func New(svc *docservice.Service, opts Options) (*Handler, error) {
	if opts.SiteTitle == "" {
		opts.SiteTitle = DefaultSiteTitle
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"viewerURL": ViewerURL,
		"indent":    func(e toc.Entry) int { return e.Indent },
		"date":      func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, opts: opts, tmpl: tmpl}, nil
}

// Mount registers the page routes and static files on r.
func (h *Handler) Mount(r chi.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.Get("/", h.Landing)
	r.Get("/viewer", h.Viewer)
	r.Get("/viewer.html", h.Viewer)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// ViewerURL returns the viewer link of a document path.
func ViewerURL(path string) string {
	return "/viewer?file=" + url.QueryEscape(path)
}

type pageData struct {
	SiteTitle string
	Title     string
	EventsURL string
}

type landingData struct {
	pageData
	Groups []models.Group
	Failed bool
}

type viewerData struct {
	pageData
	Document *docservice.Document
	Content  template.HTML
}

type errorData struct {
	pageData
	Heading string
	Path    string
	Message string
}

// Landing handles GET /.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	data := landingData{pageData: h.page("")}
	groups, err := h.svc.Listing(r.Context())
	if err != nil {
		slog.Error("landing: listing failed", slog.String("error", err.Error()))
		data.Failed = true
		h.render(w, http.StatusBadGateway, "landing.html", data)
		return
	}
	data.Groups = groups
	h.render(w, http.StatusOK, "landing.html", data)
}

// Viewer handles GET /viewer?file=<path>.
func (h *Handler) Viewer(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("file")
	if path == "" {
		h.render(w, http.StatusBadRequest, "error.html", errorData{
			pageData: h.page("No file"),
			Heading:  "No file path was given",
			Message:  "Pass the document path in the file query parameter.",
		})
		return
	}

	doc, err := h.svc.Document(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperr.ErrInvalidPath):
			status = http.StatusBadRequest
		case errors.Is(err, apperr.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperr.ErrUpstream):
			status = http.StatusBadGateway
		}
		slog.Warn("viewer: load failed", slog.String("path", path), slog.String("error", err.Error()))
		h.render(w, status, "error.html", errorData{
			pageData: h.page("Error"),
			Heading:  "The document could not be loaded",
			Path:     path,
			Message:  errorMessage(err),
		})
		return
	}

	h.render(w, http.StatusOK, "viewer.html", viewerData{
		pageData: h.page(doc.Title),
		Document: doc,
		// Rendered by goldmark from the document source.
		Content: template.HTML(doc.HTML), //nolint:gosec
	})
}

func (h *Handler) page(title string) pageData {
	return pageData{SiteTitle: h.opts.SiteTitle, Title: title, EventsURL: h.opts.EventsURL}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("web: template failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorMessage unwraps err to the message closest to its cause.
func errorMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil || next == apperr.ErrNotFound || next == apperr.ErrUpstream || next == apperr.ErrInvalidPath {
			return err.Error()
		}
		err = next
	}
}
