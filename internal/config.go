package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/nbsave/internal/nbname"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Notebook  NotebookConfig    `yaml:"notebook"`
	GitStore  GitStoreConfig    `yaml:"gitstore"`
	Journal   JournalConfig     `yaml:"journal"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Auth      AuthConfig        `yaml:"auth"`
	CORS      CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Notebook, &c.GitStore, &c.Journal, &c.Telemetry, &c.Auth, &c.CORS,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// NotebookConfig selects the notebook the widget serves.
//
// Root is the directory notebooks live in; Path is the served notebook
// relative to Root.
type NotebookConfig struct {
	Root     string `yaml:"root"`
	Path     string `yaml:"path"`
	BaseURL  string `yaml:"base_url"`
	ReadOnly bool   `yaml:"read_only"`
}

// Validate validates the notebook configuration.
func (c *NotebookConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = "/"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Path, validation.Required, validation.By(relativeNotebookPath)),
		validation.Field(&c.BaseURL, validation.By(func(v any) error {
			if !strings.HasPrefix(v.(string), "/") {
				return errors.New("must start with /")
			}
			return nil
		})),
	)
}

func relativeNotebookPath(v any) error {
	p, _ := v.(string)
	if p == "" {
		return nil
	}
	clean := path.Clean(p)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must be relative to the notebook root")
	}
	if !strings.HasSuffix(clean, nbname.Extension) {
		return fmt.Errorf("must end with %s", nbname.Extension)
	}
	return nil
}

// GitStoreConfig holds the revision repository configuration.
type GitStoreConfig struct {
	Path   string `yaml:"path"`
	Author string `yaml:"author"`
}

// Validate validates the revision repository configuration.
func (c *GitStoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// JournalConfig holds SQLite journal configuration.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TelemetryConfig points the widget at a persistence receiver. An empty
// Endpoint disables telemetry.
type TelemetryConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the telemetry configuration.
func (c *TelemetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Enabled reports whether the widget should send telemetry.
func (c *TelemetryConfig) Enabled() bool {
	return c.Endpoint != ""
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// CORSConfig sets the origin allowed to call the API from a browser.
// Empty disables CORS headers.
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	if c.AllowedOrigin == "*" {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigin, is.URL),
	)
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
		Notebook: NotebookConfig{
			Root:    "./notebooks",
			Path:    "Untitled.ipynb",
			BaseURL: "/",
		},
		GitStore: GitStoreConfig{
			Path:   "./nbsave-repo",
			Author: "nbsave",
		},
		Journal: JournalConfig{
			Path: "./nbsave.db",
		},
		Telemetry: TelemetryConfig{
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
