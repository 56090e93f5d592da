// Package models defines the domain types for furyload.
package models

import "time"

// DocumentMeta identifies one listed Markdown document.
type DocumentMeta struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Group    string `json:"group,omitempty"`
	// UpdatedAt is zero when the modification time is unknown.
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Group is an ordered, titled collection of documents for the landing page.
type Group struct {
	Key       string         `json:"key"`
	Title     string         `json:"title"`
	Documents []DocumentMeta `json:"documents"`
}
