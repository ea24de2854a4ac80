package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	SourceFormatJSON = "json"
	SourceFormatXML  = "xml"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"MW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"MW_DB_MAX_CONNS" default:"8"`

	APIClientID     string        `envconfig:"MW_API_CLIENT_ID" default:""`
	APIClientSecret string        `envconfig:"MW_API_CLIENT_SECRET" default:""`
	UseSandbox      bool          `envconfig:"MW_USE_SANDBOX" default:"false"`
	RequestTimeout  time.Duration `envconfig:"MW_REQUEST_TIMEOUT" default:"15m"`

	CallbackURL string `envconfig:"MW_CALLBACK_URL" default:""`

	SourceFileFormat    string `envconfig:"MW_SOURCE_FILE_FORMAT" default:"json"`
	MultipleSourceFiles bool   `envconfig:"MW_MULTIPLE_SOURCE_FILES" default:"false"`

	SiteBaseURL string `envconfig:"MW_SITE_BASE_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("MW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("MW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("MW_DB_MIN_CONNS (%d) cannot exceed MW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("MW_REQUEST_TIMEOUT must be >= 1s")
	}

	switch strings.ToLower(strings.TrimSpace(c.SourceFileFormat)) {
	case SourceFormatJSON, SourceFormatXML:
	default:
		return fmt.Errorf("MW_SOURCE_FILE_FORMAT must be json or xml")
	}

	if trimmed := strings.TrimSpace(c.CallbackURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("MW_CALLBACK_URL must be an absolute URL")
		}
	}

	return nil
}

// HasCredentials reports whether the MotaWord API client pair is configured.
func (c *Config) HasCredentials() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.APIClientID) != "" && strings.TrimSpace(c.APIClientSecret) != ""
}

// UserAgent identifies the bridge, and the host site when one is configured,
// on outbound API requests.
func (c *Config) UserAgent() string {
	site := ""
	if c != nil {
		site = strings.TrimSpace(c.SiteBaseURL)
	}
	if site == "" {
		return "mw-bridge"
	}
	return "mw-bridge (+" + site + ")"
}

func (c *Config) NormalizedSourceFormat() string {
	if c == nil {
		return SourceFormatJSON
	}
	format := strings.ToLower(strings.TrimSpace(c.SourceFileFormat))
	if format == SourceFormatXML {
		return SourceFormatXML
	}
	return SourceFormatJSON
}
