package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite::memory:", cfg.DatabaseURL)
	assert.Equal(t, "5174", cfg.Port)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.False(t, cfg.UsesS3())
	assert.True(t, cfg.IsTest())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoadYAMLOverlay(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("PORT", "9000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("port: \"7000\"\njwt_expires_in: 2h\nredis_addr: localhost:6379\naws_s3_bucket: job-images\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port, "file values override the environment")
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.UsesS3())
}

func TestLoadMissingYAMLFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite::memory:")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid development config",
			cfg:  Config{DatabaseURL: "sqlite::memory:", JWTSecret: DefaultJWTSecret, JWTExpiresIn: time.Hour, GoEnv: "development"},
		},
		{
			name:    "production with default secret",
			cfg:     Config{DatabaseURL: "postgres://db", JWTSecret: DefaultJWTSecret, JWTExpiresIn: time.Hour, GoEnv: "production"},
			wantErr: "JWT_SECRET must be set in production",
		},
		{
			name:    "non-positive expiry",
			cfg:     Config{DatabaseURL: "postgres://db", JWTSecret: "s3cret", GoEnv: "development"},
			wantErr: "JWT_EXPIRES_IN must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = parseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = parseDuration("xd")
	assert.Error(t, err)
}

func TestGetSetConfig(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	cfg := &Config{Port: "1234"}
	SetConfig(cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestNewLogger(t *testing.T) {
	defaultLogger := slog.Default()
	defer slog.SetDefault(defaultLogger)

	var buf bytes.Buffer
	logger := newLogger(&Config{GoEnv: "production", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("visible", slog.String("component", "config"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"component":"config"`)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("unknown"))
}
