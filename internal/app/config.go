package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// PDF export backends.
const (
	PDFBackendLocal     = "local"
	PDFBackendGotenberg = "gotenberg"
)

// Config holds runtime configuration for the web front.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// Accounting service holding the trial balance report.
	TBAPIBaseURL   string        `envconfig:"TB_API_BASE_URL" default:"http://127.0.0.1:5000"`
	TBAPIToken     string        `envconfig:"TB_API_TOKEN"`
	TBFetchTimeout time.Duration `envconfig:"TB_FETCH_TIMEOUT" default:"30s"`
	TBPageIdleTTL  time.Duration `envconfig:"TB_PAGE_IDLE_TTL" default:"30m"`

	PDFBackend   string `envconfig:"PDF_BACKEND" default:"local"`
	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.TBAPIBaseURL == "" {
		return nil, errors.New("trial balance api base url must be provided")
	}
	switch cfg.PDFBackend {
	case PDFBackendLocal, PDFBackendGotenberg:
	default:
		return nil, errors.New("pdf backend must be local or gotenberg")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
