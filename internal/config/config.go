// Package config provides configuration management for the application.
// It supports a YAML configuration file with ${ENV} expansion and RV_
// environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// DefaultConfigPath is the default location of the configuration file
const DefaultConfigPath = "config/reportviewer.yaml"

const (
	defaultServiceTimeout  = 60 * time.Second
	defaultValidationDelay = 500 * time.Millisecond
	defaultPollInterval    = time.Second
	defaultJournalPath     = "./data/reportviewer.db"
	defaultRetentionDays   = 14
	defaultMockPort        = 8095
	defaultOTLPEndpoint    = "localhost:4317"
	defaultPrometheusPort  = 9464
)

// AuthMode selects how the client authenticates against the reporting service
type AuthMode string

const (
	AuthModeNone              AuthMode = "none"
	AuthModeToken             AuthMode = "token"
	AuthModeClientCredentials AuthMode = "client_credentials"
)

// Config represents the complete application configuration
type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Viewer    ViewerConfig     `yaml:"viewer"`
	Journal   JournalConfig    `yaml:"journal"`
	Mock      MockConfig       `yaml:"mock"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServiceConfig describes the remote reporting service
type ServiceConfig struct {
	URL     string        `yaml:"url"`     // base url, the client appends /api/...
	Timeout time.Duration `yaml:"timeout"` // per-request timeout
	Culture string        `yaml:"culture"` // BCP 47 tag sent as Accept-Language
	Auth    AuthConfig    `yaml:"auth"`
}

// AuthConfig holds credentials for the reporting service
type AuthConfig struct {
	Mode         AuthMode `yaml:"mode"`
	Token        string   `yaml:"token"`         // static bearer token (mode token)
	ClientID     string   `yaml:"client_id"`     // mode client_credentials
	ClientSecret string   `yaml:"client_secret"` // mode client_credentials
	TokenURL     string   `yaml:"token_url"`     // defaults to <url>/api/oauth/token
	Scopes       []string `yaml:"scopes"`
}

// ViewerConfig tunes the viewer controller and parameter editor
type ViewerConfig struct {
	Paginated       bool          `yaml:"paginated"`
	ValidationDelay time.Duration `yaml:"validation_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// JournalConfig configures the local session journal
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// MockConfig configures the bundled mock reporting service
type MockConfig struct {
	Host        string         `yaml:"host"`
	Port        int            `yaml:"port"`
	Debug       bool           `yaml:"debug"`
	RenderDelay time.Duration  `yaml:"render_delay"`
	Auth        MockAuthConfig `yaml:"auth"`
}

// MockAuthConfig enables OAuth2 client-credentials protection on the mock service
type MockAuthConfig struct {
	Enabled          bool          `yaml:"enabled"`
	ClientID         string        `yaml:"client_id"`
	ClientSecretHash string        `yaml:"client_secret_hash"` // bcrypt hash
	JWTSecret        string        `yaml:"jwt_secret"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
}

// Address returns the mock service listen address
func (c *MockConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// TokenEndpoint returns the OAuth2 token url, derived from the service url when unset
func (c *ServiceConfig) TokenEndpoint() string {
	if c.Auth.TokenURL != "" {
		return c.Auth.TokenURL
	}
	return strings.TrimRight(c.URL, "/") + "/api/oauth/token"
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Timeout: defaultServiceTimeout,
			Culture: "en",
			Auth:    AuthConfig{Mode: AuthModeNone},
		},
		Viewer: ViewerConfig{
			Paginated:       true,
			ValidationDelay: defaultValidationDelay,
			PollInterval:    defaultPollInterval,
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          defaultJournalPath,
			RetentionDays: defaultRetentionDays,
		},
		Mock: MockConfig{
			Host: "127.0.0.1",
			Port: defaultMockPort,
			Auth: MockAuthConfig{TokenTTL: time.Hour},
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Port: defaultPrometheusPort,
			},
		},
	}
}

// Load reads the YAML file at path on top of Default and applies environment
// overrides. A missing file is reported with ErrCodeConfigNotFound.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeConfigNotFound, "configuration file not found: "+path, err)
		}
		return nil, errors.Wrap(errors.ErrCodeConfigParse, "failed to read configuration", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigParse, "failed to parse configuration", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default (plus environment
// overrides) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.IsCode(err, errors.ErrCodeConfigNotFound) {
		cfg = Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return cfg, err
}

// Write serialises cfg to path
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the settings every service-facing command needs
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.URL) == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "service.url is required")
	}
	u, err := url.Parse(c.Service.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "service.url must be an absolute http(s) url")
	}

	switch c.Service.Auth.Mode {
	case "", AuthModeNone:
	case AuthModeToken:
		if c.Service.Auth.Token == "" {
			return errors.New(errors.ErrCodeConfigInvalid, "service.auth.token is required for token auth")
		}
	case AuthModeClientCredentials:
		if c.Service.Auth.ClientID == "" || c.Service.Auth.ClientSecret == "" {
			return errors.New(errors.ErrCodeConfigInvalid, "service.auth.client_id and client_secret are required for client_credentials auth")
		}
	default:
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown service.auth.mode %q", c.Service.Auth.Mode))
	}

	if c.Viewer.ValidationDelay < 0 || c.Viewer.PollInterval < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "viewer delays must not be negative")
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default}; bare $VAR is left alone
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if value := os.Getenv(parts[0]); value != "" {
			return value
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

// applyEnvOverrides applies RV_ environment variables:
//   - RV_SERVICE_URL, RV_SERVICE_TOKEN, RV_SERVICE_CULTURE
//   - RV_CLIENT_ID, RV_CLIENT_SECRET
//   - RV_JOURNAL_PATH
//   - RV_LOG_LEVEL, RV_LOG_FORMAT, RV_LOG_FILE
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RV_SERVICE_URL"); v != "" {
		cfg.Service.URL = v
	}
	if v := os.Getenv("RV_SERVICE_TOKEN"); v != "" {
		cfg.Service.Auth.Mode = AuthModeToken
		cfg.Service.Auth.Token = v
	}
	if v := os.Getenv("RV_SERVICE_CULTURE"); v != "" {
		cfg.Service.Culture = v
	}
	if v := os.Getenv("RV_CLIENT_ID"); v != "" {
		cfg.Service.Auth.ClientID = v
	}
	if v := os.Getenv("RV_CLIENT_SECRET"); v != "" {
		cfg.Service.Auth.ClientSecret = v
	}
	if v := os.Getenv("RV_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("RV_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RV_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RV_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
