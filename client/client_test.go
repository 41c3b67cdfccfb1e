package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClientLoginStartsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var input services.LoginInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		if input.Password != "password123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false, "code": "UNAUTHORIZED", "message": "Incorrect email or password",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"token": "tok", "user": map[string]any{"id": "u1", "name": "Sara", "role": "employer"}},
		})
	}))
	defer server.Close()

	c := New(server.URL, nil)

	_, err := c.Login(context.Background(), "sara@example.com", "wrong")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Incorrect email or password", apiErr.Message)
	assert.Nil(t, c.Session().Current())

	user, err := c.Login(context.Background(), "sara@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployer, user.Role)
	assert.Equal(t, "tok", c.Session().Token())
}

func TestClientClearsSessionOnUnauthorized(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "code": "UNAUTHORIZED", "message": "Invalid or expired token",
		})
	}))
	defer server.Close()

	store := NewSessionStore()
	store.Set("expired", nil)
	cleared := make(chan struct{}, 1)
	store.Subscribe(func(s *Session) {
		if s == nil {
			cleared <- struct{}{}
		}
	})

	_, err := New(server.URL, store).Me(context.Background())

	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Bearer expired", gotAuth)
	assert.Nil(t, store.Current())
	assert.Len(t, cleared, 1)
}

func TestClientKeepsSessionOnOtherErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "code": "INVALID_STATE", "message": "Only jobs in progress can be completed",
		})
	}))
	defer server.Close()

	store := NewSessionStore()
	store.Set("tok", nil)

	_, err := New(server.URL, store).Complete(context.Background(), "job-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "INVALID_STATE", apiErr.Code)
	assert.Equal(t, "Only jobs in progress can be completed", apiErr.Message)
	assert.False(t, IsUnauthorized(err))
	assert.NotNil(t, store.Current())
}

func TestClientListJobsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		assert.Equal(t, "painting", r.URL.Query().Get("jobType"))
		assert.Equal(t, "budget:desc", r.URL.Query().Get("sort"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Empty(t, r.URL.Query().Get("city"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "data": []map[string]any{{"id": "j1", "title": "Paint"}},
			"count": 1, "total": 11, "pages": 2, "currentPage": 2,
		})
	}))
	defer server.Close()

	list, err := New(server.URL, nil).ListJobs(context.Background(), JobQuery{JobType: "painting", Sort: "budget:desc", Page: 2})

	require.NoError(t, err)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "Paint", list.Jobs[0].Title)
	assert.Equal(t, Page{Count: 1, Total: 11, Pages: 2, CurrentPage: 2}, list.Page)
}

func TestClientNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, nil).GetJob(context.Background(), "j1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5174/ws", websocketURL("http://localhost:5174/"))
	assert.Equal(t, "wss://api.example.com/ws", websocketURL("https://api.example.com"))
}
