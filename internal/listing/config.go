// Package listing builds the grouped document listing shown on the landing
// page from an external listing file and a directory Lister.
package listing

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/furyload/internal/resolve"
)

// Config is the structured listing file (properties/main-config.yaml or
// .json). It is loaded once and injected; nothing mutates it afterwards.
type Config struct {
	DocumentRoot string                   `yaml:"document_root"`
	Groups       []GroupConfig            `yaml:"groups"`
	Exclude      []string                 `yaml:"exclude"`
	Documents    map[string]DocumentFlags `yaml:"documents"`
}

// GroupConfig is one titled section of the landing page.
type GroupConfig struct {
	Key        string   `yaml:"key"`
	Title      string   `yaml:"title"`
	Categories []string `yaml:"categories"`
}

// DocumentFlags are per-document switches keyed by path.
type DocumentFlags struct {
	NoTOC bool `yaml:"no_toc"`
}

// Validate validates the listing configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Groups, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if err := validation.ValidateStruct(g,
			validation.Field(&g.Key, validation.Required),
			validation.Field(&g.Title, validation.Required),
			validation.Field(&g.Categories, validation.Required),
		); err != nil {
			return fmt.Errorf("listing: group %d: %w", i, err)
		}
		if _, dup := seen[g.Key]; dup {
			return fmt.Errorf("listing: duplicate group key %q", g.Key)
		}
		seen[g.Key] = struct{}{}
	}
	return nil
}

// Root returns the normalised document root ("posts/").
func (c *Config) Root() string {
	return resolve.NormalizeRoot(c.DocumentRoot)
}

// Excluded reports whether a file name is hidden from the listing.
func (c *Config) Excluded(name string) bool {
	return slices.Contains(c.Exclude, name)
}

// Flags returns the flags of a document. The key may be given with or
// without the document root prefix.
func (c *Config) Flags(path string) DocumentFlags {
	if f, ok := c.Documents[path]; ok {
		return f
	}
	if f, ok := c.Documents[strings.TrimPrefix(path, c.Root())]; ok {
		return f
	}
	return DocumentFlags{}
}

// Categories returns every category in group order.
func (c *Config) Categories() []string {
	var out []string
	for _, g := range c.Groups {
		out = append(out, g.Categories...)
	}
	return out
}
