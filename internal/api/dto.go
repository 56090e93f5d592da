package api

import (
	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/index"
	"github.com/starford/furyload/internal/models"
)

// ListingResponse is the grouped document listing.
type ListingResponse struct {
	Groups []models.Group `json:"groups" validate:"required"`
	Total  int            `json:"total" example:"12" validate:"required"`
}

// DocumentResponse is the rendered document (aliased from the domain layer).
type DocumentResponse = docservice.Document

// OutlineResponse is the outline of one document (aliased from the domain layer).
type OutlineResponse = docservice.OutlineResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ResolveResponse is the outcome of resolving an image reference.
type ResolveResponse struct {
	Src      string `json:"src" example:"./img/a.png" validate:"required"`
	Document string `json:"document" example:"posts/md/guide.md" validate:"required"`
	URL      string `json:"url" example:"https://raw.githubusercontent.com/o/r/main/posts/md/img/a.png" validate:"required"`
}

// RefreshResponse reports the outcome of a listing and index refresh.
type RefreshResponse struct {
	Groups    int `json:"groups" example:"3"`
	Documents int `json:"documents" example:"12"`
	Changes   int `json:"changes" example:"2"`
}
