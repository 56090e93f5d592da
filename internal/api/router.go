package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/furyload/internal/docservice"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AuthEnabled enforces Bearer token auth on mutating routes.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *docservice.Service, opts RouterOptions) chi.Router {
	h := NewHandler(svc)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Get("/outline/*", h.GetOutline)

	// Path resolution and search.
	r.Get("/resolve", h.Resolve)
	r.Get("/search", h.Search)

	// Refresh (auth-protected).
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))
		r.Post("/refresh", h.Refresh)
	})

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
