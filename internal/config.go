package internal

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Listing ListingConfig     `yaml:"listing"`
	GitHub  GitHubConfig      `yaml:"github"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Site    SiteConfig        `yaml:"site"`
	CORS    CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Listing.Validate(); err != nil {
		return err
	}
	if !c.Content.Local() {
		if err := c.GitHub.Validate(); err != nil {
			return err
		}
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig selects where documents are read from.
//
// RootURL is the raw-content host documents and images are fetched from
// (for example https://raw.githubusercontent.com/owner/repo/main/).
// LocalDir, when set, serves a local checkout instead: documents are read
// from disk, images are served under /raw and the index follows file
// changes.
type ContentConfig struct {
	RootURL  string `yaml:"root_url"`
	LocalDir string `yaml:"local_dir"`
}

// Local reports whether content is read from a local directory.
func (c *ContentConfig) Local() bool {
	return c.LocalDir != ""
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	if c.RootURL == "" && c.LocalDir == "" {
		return errors.New("content: one of root_url or local_dir is required")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.RootURL, is.URL),
	)
}

// ListingConfig points at the structured listing file (YAML or JSON).
type ListingConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the listing configuration.
func (c *ListingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GitHubConfig identifies the content repository for directory listings
// and commit times.
type GitHubConfig struct {
	Owner             string  `yaml:"owner"`
	Repo              string  `yaml:"repo"`
	Branch            string  `yaml:"branch"`
	Token             string  `yaml:"token"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BaseURL           string  `yaml:"base_url"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.BaseURL, is.URL),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SiteConfig holds page presentation settings.
type SiteConfig struct {
	Title string `yaml:"title"`
	// HighlightStyle is the chroma style for code blocks.
	HighlightStyle string `yaml:"highlight_style"`
}

// CORSConfig lists origins allowed to call the JSON API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Listing: ListingConfig{
			Path: "./properties/main-config.yaml",
		},
		GitHub: GitHubConfig{
			Branch: "main",
		},
		SQLite: SQLiteConfig{
			Path: "./furyload.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Site: SiteConfig{
			HighlightStyle: "github",
		},
	}
}
