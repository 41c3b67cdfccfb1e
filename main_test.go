package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestSetupImagesLocal checks the upload directory fallback
func TestSetupImagesLocal(t *testing.T) {
	previous := utils.UploadDir
	t.Cleanup(func() {
		utils.UploadDir = previous
		services.SetImageService(nil)
	})

	dir := filepath.Join(t.TempDir(), "uploads")
	cfg := &config.Config{UploadDir: dir}

	require.NoError(t, setupImages(context.Background(), cfg, quietLogger()))

	assert.DirExists(t, dir)
	assert.Equal(t, dir, utils.UploadDir)
	local, ok := services.GetImageService().(*services.LocalImageService)
	require.True(t, ok, "expected the local image service")
	assert.Equal(t, dir, local.Dir())
}

// TestSetupImagesS3 checks that a configured bucket selects S3 storage
func TestSetupImagesS3(t *testing.T) {
	t.Cleanup(func() { services.SetImageService(nil) })

	cfg := &config.Config{
		AWSRegion:          "us-east-1",
		AWSS3Bucket:        "test-bucket",
		AWSAccessKeyID:     "test-key",
		AWSSecretAccessKey: "test-secret",
	}

	require.NoError(t, setupImages(context.Background(), cfg, quietLogger()))

	_, ok := services.GetImageService().(*services.S3ImageService)
	assert.True(t, ok, "expected the S3 image service")
}

// TestSetupRealtimeWithoutRedis checks that an unreachable Redis leaves a
// working local hub
func TestSetupRealtimeWithoutRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := setupRealtime(ctx, &config.Config{RedisAddr: "127.0.0.1:1"}, quietLogger())

	require.NotNil(t, hub)
	assert.Zero(t, hub.ClientCount())
}

// TestRunRejectsInvalidConfig checks that run fails fast without a database
func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "")

	done := make(chan error, 1)
	go func() { done <- run("") }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL is required")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
}
