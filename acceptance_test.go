package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/routes"
	"github.com/saeed-rahimi/ss/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer wires the application the way run does, on an in-memory
// database, and serves it over a real listener
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		DatabaseURL:  ":memory:",
		GoEnv:        "test",
		JWTSecret:    "test-secret",
		JWTExpiresIn: time.Hour,
		JWTIssuer:    "test-issuer",
		JWTAudience:  "test-audience",
		FrontendURL:  "*",
		UploadDir:    filepath.Join(t.TempDir(), "uploads"),
	}
	require.NoError(t, cfg.Validate())
	require.NoError(t, config.ConnectDatabase(cfg))
	sqlDB, err := config.GetDB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(config.GetDB()))

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiresIn)
	require.NoError(t, err)
	services.SetTokenService(tokens)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, setupImages(ctx, cfg, quietLogger()))
	hub := setupRealtime(ctx, cfg, quietLogger())
	services.SetNotifier(hub)

	server := httptest.NewServer(routes.SetupRouter(routes.Options{
		Config: cfg,
		Tokens: tokens,
		Hub:    hub,
		Logger: quietLogger(),
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		services.SetNotifier(nil)
		services.SetImageService(nil)
		_ = sqlDB.Close()
	})
	return server
}

// TestAPIHealthEndpointAcceptance is an end-to-end acceptance test
// It sends a real HTTP request to verify the API works as expected
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Equal(t, "Construction jobs API is running", response.Message)
}

// TestDatabaseStatusAcceptance checks that every table was migrated
func TestDatabaseStatusAcceptance(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get(server.URL + "/api/database/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Data struct {
			Dialect string   `json:"dialect"`
			Tables  []string `json:"tables"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.Equal(t, "sqlite", response.Data.Dialect)
	assert.Subset(t, response.Data.Tables, []string{"users", "jobs", "job_applicants", "messages", "reviews"})
}

// TestHealthEndpointAvailability tests that the health endpoint is available immediately
func TestHealthEndpointAvailability(t *testing.T) {
	server := startServer(t)

	// Make multiple requests to ensure consistency
	for i := 0; i < 5; i++ {
		resp, err := http.Get(server.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, fmt.Sprintf("Request %d should succeed", i+1))
	}
}

// TestHealthEndpointResponseTime tests that the endpoint responds quickly
func TestHealthEndpointResponseTime(t *testing.T) {
	server := startServer(t)

	start := time.Now()
	resp, err := http.Get(server.URL + "/api/health")
	duration := time.Since(start)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Less(t, duration, 500*time.Millisecond, "Health endpoint should respond in less than 500ms")
}
