package testutil

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/realtime"
	"github.com/saeed-rahimi/ss/routes"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Server is the whole API running on an in-memory database
type Server struct {
	*httptest.Server
	Config *config.Config
	DB     *gorm.DB
	Tokens *services.TokenService
	Hub    *realtime.Hub
}

// TestConfig returns a valid configuration for an in-memory database and a
// per-test upload directory
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseURL:  ":memory:",
		Port:         "0",
		GoEnv:        "test",
		JWTSecret:    "integration-secret",
		JWTExpiresIn: time.Hour,
		JWTIssuer:    "construction-jobs-test",
		JWTAudience:  "construction-jobs-test",
		FrontendURL:  "*",
		UploadDir:    filepath.Join(t.TempDir(), "uploads"),
		LogLevel:     "error",
	}
}

// StartServer wires every package into a router served over a real listener.
// Job images are stored in the config's upload directory.
func StartServer(t *testing.T) *Server {
	t.Helper()
	MustSetTestEnvironment(t)

	cfg := TestConfig(t)
	require.NoError(t, cfg.Validate())
	config.SetConfig(cfg)

	require.NoError(t, config.ConnectDatabase(cfg))
	db := config.GetDB()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiresIn)
	require.NoError(t, err)
	services.SetTokenService(tokens)
	services.SetHashCost(bcrypt.MinCost)

	require.NoError(t, os.MkdirAll(cfg.UploadDir, 0o755))
	previousUploadDir := utils.UploadDir
	utils.UploadDir = cfg.UploadDir
	services.InitLocalImageService(cfg.UploadDir)

	logger := slog.New(slog.DiscardHandler)
	hub := realtime.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	services.SetNotifier(hub)

	server := httptest.NewServer(routes.SetupRouter(routes.Options{
		Config: cfg,
		Tokens: tokens,
		Hub:    hub,
		Logger: logger,
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
		services.SetNotifier(nil)
		services.SetImageService(nil)
		utils.UploadDir = previousUploadDir
		_ = sqlDB.Close()
	})

	return &Server{Server: server, Config: cfg, DB: db, Tokens: tokens, Hub: hub}
}

// CreateUser inserts a user directly with password "password123" and
// returns it with a valid token
func (s *Server) CreateUser(t *testing.T, name string, role models.Role) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: string(hash),
		Phone:        "09121234567",
		Role:         role,
		Location:     models.Location{City: "Tehran", Province: "Tehran"},
	}
	if role == models.RoleSpecialist {
		user.Skills = []string{"painting"}
	}
	require.NoError(t, s.DB.Create(user).Error)

	token, err := s.Tokens.Issue(user)
	require.NoError(t, err)
	return user, token
}
