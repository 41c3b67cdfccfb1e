package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/realtime"
	"github.com/saeed-rahimi/ss/routes"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML file overriding environment settings")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.SetConfig(cfg)
	logger := config.NewLogger(cfg)
	logger.Info("starting construction jobs API")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg); err != nil {
		return err
	}
	if err := config.Migrate(config.GetDB()); err != nil {
		return err
	}
	logger.Info("database migration completed")

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiresIn)
	if err != nil {
		return err
	}
	services.SetTokenService(tokens)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setupImages(ctx, cfg, logger); err != nil {
		return err
	}

	hub := setupRealtime(ctx, cfg, logger)
	services.SetNotifier(hub)

	router := routes.SetupRouter(routes.Options{
		Config: cfg,
		Tokens: tokens,
		Hub:    hub,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server is running", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupImages stores job images in S3 when a bucket is configured and in the
// upload directory otherwise
func setupImages(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.UsesS3() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			return err
		}
		services.InitImageService(s3Service)
		logger.Info("job images stored in S3", slog.String("bucket", cfg.AWSS3Bucket))
		return nil
	}

	utils.UploadDir = cfg.UploadDir
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}
	services.InitLocalImageService(cfg.UploadDir)
	logger.Info("job images stored locally", slog.String("dir", cfg.UploadDir))
	return nil
}

// setupRealtime starts the websocket hub, bridged over Redis when it is
// configured and reachable
func setupRealtime(ctx context.Context, cfg *config.Config, logger *slog.Logger) *realtime.Hub {
	hub := realtime.NewHub(logger)

	if cfg.RedisAddr != "" {
		bridge, err := realtime.NewRedisBridge(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Warn("realtime bridge disabled, events stay on this instance", slog.Any("error", err))
		} else {
			hub.UseBridge(bridge)
			go func() {
				bridge.Run(ctx, hub.DeliverFromPeer)
				_ = bridge.Close()
			}()
		}
	}

	go hub.Run(ctx)
	return hub
}
