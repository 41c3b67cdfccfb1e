package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email string) map[string]any {
	return map[string]any{
		"name":     "Sara",
		"email":    email,
		"password": "password123",
		"phone":    "09121234567",
		"role":     "employer",
		"location": map[string]any{"city": "Tehran", "province": "Tehran"},
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(map[string]any)
		expectedStatus int
		expectedCode   string
	}{
		{"valid employer", func(map[string]any) {}, http.StatusCreated, ""},
		{"missing email", func(b map[string]any) { delete(b, "email") }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"short password", func(b map[string]any) { b["password"] = "short" }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad phone", func(b map[string]any) { b["phone"] = "12345" }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown role", func(b map[string]any) { b["role"] = "admin" }, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestDB(t)
			router := gin.New()
			router.POST("/auth/register", Register)

			body := registerBody("sara@example.com")
			tt.mutate(body)
			w, resp := serveJSON(t, router, http.MethodPost, "/auth/register", body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.False(t, resp.Success)
				assert.Equal(t, tt.expectedCode, resp.Code)
				return
			}
			result := decodeData[services.AuthResult](t, resp)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, "sara@example.com", result.User.Email)
			assert.NotContains(t, w.Body.String(), "password")
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	setupTestDB(t)
	router := gin.New()
	router.POST("/auth/register", Register)

	w, _ := serveJSON(t, router, http.MethodPost, "/auth/register", registerBody("dup@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := serveJSON(t, router, http.MethodPost, "/auth/register", registerBody("DUP@example.com"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_KEY", resp.Code)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	createUser(t, db, "reza", models.RoleSpecialist)
	router := gin.New()
	router.POST("/auth/login", Login)

	w, resp := serveJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "reza@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeData[services.AuthResult](t, resp).Token)

	w, resp = serveJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "reza@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect email or password", resp.Message)

	w, _ = serveJSON(t, router, http.MethodPost, "/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMe(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "reza", models.RoleSpecialist)

	router := gin.New()
	router.GET("/auth/me", mockAuthMiddleware(user), GetMe)
	w, resp := serveJSON(t, router, http.MethodGet, "/auth/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	me := decodeData[models.User](t, resp)
	assert.Equal(t, user.ID, me.ID)

	// no auth context
	router = gin.New()
	router.GET("/auth/me", GetMe)
	w, _ = serveJSON(t, router, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMe(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "reza", models.RoleSpecialist)
	router := gin.New()
	router.PATCH("/auth/updateMe", mockAuthMiddleware(user), UpdateMe)

	t.Run("updates the given fields", func(t *testing.T) {
		w, resp := serveJSON(t, router, http.MethodPatch, "/auth/updateMe", map[string]any{
			"name": "Reza K", "skills": []string{"tiling", "plastering"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		updated := decodeData[models.User](t, resp)
		assert.Equal(t, "Reza K", updated.Name)
		assert.Equal(t, []string{"tiling", "plastering"}, updated.Skills)
		assert.Equal(t, "09121234567", updated.Phone)
	})

	t.Run("refuses password changes", func(t *testing.T) {
		w, resp := serveJSON(t, router, http.MethodPatch, "/auth/updateMe", map[string]any{"password": "newpassword"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "This route is not for password updates. Please use /updatePassword", resp.Message)
	})

	t.Run("invalid email", func(t *testing.T) {
		w, resp := serveJSON(t, router, http.MethodPatch, "/auth/updateMe", map[string]any{"email": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})
}

func TestUpdatePassword(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "reza", models.RoleSpecialist)
	router := gin.New()
	router.PATCH("/auth/updatePassword", mockAuthMiddleware(user), UpdatePassword)
	router.POST("/auth/login", Login)

	w, _ := serveJSON(t, router, http.MethodPatch, "/auth/updatePassword", map[string]string{
		"currentPassword": "wrong-password", "newPassword": "newpassword123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := serveJSON(t, router, http.MethodPatch, "/auth/updatePassword", map[string]string{
		"currentPassword": "password123", "newPassword": "newpassword123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeData[services.AuthResult](t, resp).Token)

	w, _ = serveJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "reza@example.com", "password": "newpassword123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
