// Package storage defines read access to a local content directory.
package storage

import "time"

// FileInfo describes one Markdown file below the content root.
type FileInfo struct {
	// Path is slash-separated and relative to the content root.
	Path     string
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for content file operations.
type Provider interface {
	// List returns every .md file under dir (relative to the content root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns the modification time of the file at path.
	Stat(path string) (time.Time, error)
	// Root returns the absolute content directory.
	Root() string
}
