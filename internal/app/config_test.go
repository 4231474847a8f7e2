package app

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.TBAPIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.TBFetchTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TBPageIdleTTL)
	assert.Equal(t, PDFBackendLocal, cfg.PDFBackend)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Empty(t, cfg.TBAPIToken)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("TB_API_BASE_URL", "https://ledger.example.com")
	t.Setenv("TB_API_TOKEN", "service-token")
	t.Setenv("TB_FETCH_TIMEOUT", "5s")
	t.Setenv("PDF_BACKEND", PDFBackendGotenberg)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://ledger.example.com", cfg.TBAPIBaseURL)
	assert.Equal(t, "service-token", cfg.TBAPIToken)
	assert.Equal(t, 5*time.Second, cfg.TBFetchTimeout)
	assert.Equal(t, PDFBackendGotenberg, cfg.PDFBackend)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Run("missing secrets", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("CSRF_SECRET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("unknown pdf backend", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PDF_BACKEND", "wkhtmltopdf")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "pdf backend")
	})
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "development", LogFormat: "json"})
	logger.Debug("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	logger = newLogger(&buf, &Config{AppEnv: "production"})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestTestModeDetection(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "yes")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
