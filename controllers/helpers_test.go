package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.RegisterBindingValidators()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	config.SetDB(db)

	tokens, err := services.NewTokenService("test-secret", "test-issuer", "test-audience", time.Hour)
	require.NoError(t, err)
	services.SetTokenService(tokens)
	services.SetHashCost(bcrypt.MinCost)
	services.SetNotifier(nil)
	services.SetImageService(nil)

	return db
}

// mockAuthMiddleware creates a middleware that simulates authentication
func mockAuthMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user.ID)
		c.Set(middleware.CurrentUserKey, user)
		c.Next()
	}
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
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
	require.NoError(t, db.Create(user).Error)
	return user
}

func createJob(t *testing.T, db *gorm.DB, employer *models.User, title string, status models.JobStatus) *models.Job {
	t.Helper()
	job := &models.Job{
		Title:       title,
		Description: "Test job",
		JobType:     models.JobTypePainting,
		Budget:      250,
		Location:    models.Location{City: "Tehran", Province: "Tehran"},
		EmployerID:  employer.ID,
		Status:      status,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Code        string          `json:"code"`
	Data        json.RawMessage `json:"data"`
	Count       *int            `json:"count"`
	Total       *int64          `json:"total"`
	Pages       *int            `json:"pages"`
	CurrentPage *int            `json:"currentPage"`
}

func serveJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decodeData[T any](t *testing.T, resp envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

