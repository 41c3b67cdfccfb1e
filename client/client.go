package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
)

const defaultTimeout = 15 * time.Second

// APIError is a failed API call. Message is the server's text, meant to be
// shown to the user as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// envelope mirrors the server's response shape
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

// Page describes one page of a paginated listing
type Page struct {
	Count       int
	Total       int64
	Pages       int
	CurrentPage int
}

// JobList is one page of jobs
type JobList struct {
	Jobs []models.Job
	Page Page
}

// JobQuery holds the filters of GET /jobs and /employers/my-jobs
type JobQuery struct {
	JobType string
	City    string
	Status  string
	Search  string
	Sort    string
	Page    int
	Limit   int
}

func (q JobQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("jobType", q.JobType)
	set("city", q.City)
	set("status", q.Status)
	set("search", q.Search)
	set("sort", q.Sort)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Client talks to the REST API on behalf of the session in its store.
// Any 401 clears the store.
type Client struct {
	baseURL string
	http    *http.Client
	session *SessionStore
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API served at baseURL, e.g. http://host:5174
func New(baseURL string, session *SessionStore, opts ...Option) *Client {
	if session == nil {
		session = NewSessionStore()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the store the client authenticates with
func (c *Client) Session() *SessionStore {
	return c.session
}

// Register creates an account and starts a session for it
func (c *Client) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	var result services.AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/register", input, &result); err != nil {
		return nil, err
	}
	c.session.Set(result.Token, result.User)
	return result.User, nil
}

// Login starts a session
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var result services.AuthResult
	input := services.LoginInput{Email: email, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", input, &result); err != nil {
		return nil, err
	}
	c.session.Set(result.Token, result.User)
	return result.User, nil
}

// Logout ends the session locally; tokens are stateless
func (c *Client) Logout() {
	c.session.Clear()
}

// Me reloads the current user and refreshes it in the session
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	c.session.UpdateUser(&user)
	return &user, nil
}

// UpdateMe changes profile fields
func (c *Client) UpdateMe(ctx context.Context, input services.UpdateProfileInput) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, http.MethodPatch, "/api/auth/updateMe", input, &user); err != nil {
		return nil, err
	}
	c.session.UpdateUser(&user)
	return &user, nil
}

// UpdatePassword changes the password and continues with the fresh token
func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	var result services.AuthResult
	input := services.UpdatePasswordInput{CurrentPassword: current, NewPassword: next}
	if _, err := c.do(ctx, http.MethodPatch, "/api/auth/updatePassword", input, &result); err != nil {
		return err
	}
	c.session.Set(result.Token, result.User)
	return nil
}

// ListJobs lists jobs, OPEN ones unless q.Status says otherwise
func (c *Client) ListJobs(ctx context.Context, q JobQuery) (*JobList, error) {
	return c.listJobs(ctx, "/api/jobs", q)
}

// MyJobs lists the calling employer's jobs
func (c *Client) MyJobs(ctx context.Context, q JobQuery) (*JobList, error) {
	return c.listJobs(ctx, "/api/employers/my-jobs", q)
}

func (c *Client) listJobs(ctx context.Context, path string, q JobQuery) (*JobList, error) {
	if encoded := q.values().Encode(); encoded != "" {
		path += "?" + encoded
	}
	var jobs []models.Job
	env, err := c.do(ctx, http.MethodGet, path, nil, &jobs)
	if err != nil {
		return nil, err
	}
	return &JobList{Jobs: jobs, Page: pageOf(env)}, nil
}

// AvailableJobs lists OPEN jobs the calling specialist has not applied to
func (c *Client) AvailableJobs(ctx context.Context) ([]models.Job, error) {
	return c.jobs(ctx, "/api/jobs/available/list")
}

// MyApplications lists the jobs the calling specialist applied to
func (c *Client) MyApplications(ctx context.Context) ([]models.Job, error) {
	return c.jobs(ctx, "/api/specialists/my-applications")
}

// AssignedJobs lists the jobs assigned to the calling specialist
func (c *Client) AssignedJobs(ctx context.Context) ([]models.Job, error) {
	return c.jobs(ctx, "/api/specialists/my-jobs")
}

func (c *Client) jobs(ctx context.Context, path string) ([]models.Job, error) {
	var jobs []models.Job
	if _, err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob loads one job with its applicants
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return c.job(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil)
}

// CreateJob posts a job
func (c *Client) CreateJob(ctx context.Context, input services.JobInput) (*models.Job, error) {
	return c.job(ctx, http.MethodPost, "/api/jobs", input)
}

// UpdateJob edits an OPEN job
func (c *Client) UpdateJob(ctx context.Context, id string, input services.JobUpdateInput) (*models.Job, error) {
	return c.job(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(id), input)
}

// DeleteJob removes an OPEN job
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, nil)
	return err
}

// Apply applies the calling specialist to a job
func (c *Client) Apply(ctx context.Context, id, notes string) (*models.Job, error) {
	return c.job(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/apply", map[string]string{"notes": notes})
}

// Accept assigns an applicant and starts the job
func (c *Client) Accept(ctx context.Context, id, specialistID string) (*models.Job, error) {
	path := "/api/jobs/" + url.PathEscape(id) + "/accept-specialist/" + url.PathEscape(specialistID)
	return c.job(ctx, http.MethodPost, path, nil)
}

// Complete finishes an IN_PROGRESS job
func (c *Client) Complete(ctx context.Context, id string) (*models.Job, error) {
	return c.job(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(id)+"/complete", nil)
}

// Cancel withdraws an OPEN job
func (c *Client) Cancel(ctx context.Context, id string) (*models.Job, error) {
	return c.job(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil)
}

// UploadJobImage attaches an image to an OPEN job
func (c *Client) UploadJobImage(ctx context.Context, id, filename string, image io.Reader) (*models.Job, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/image", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var job models.Job
	if _, err := c.send(req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Review rates the specialist of a COMPLETED job
func (c *Client) Review(ctx context.Context, id string, input services.ReviewInput) (*models.Review, error) {
	var review models.Review
	if _, err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/review", input, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) job(ctx context.Context, method, path string, body any) (*models.Job, error) {
	var job models.Job
	if _, err := c.do(ctx, method, path, body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// SendMessage stores a direct message
func (c *Client) SendMessage(ctx context.Context, input services.SendMessageInput) (*models.Message, error) {
	var msg models.Message
	if _, err := c.do(ctx, http.MethodPost, "/api/messages", input, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UnreadCount is the number of unread messages addressed to the caller
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/messages/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Conversations lists the caller's conversations, most recent first
func (c *Client) Conversations(ctx context.Context) ([]services.Conversation, error) {
	var conversations []services.Conversation
	if _, err := c.do(ctx, http.MethodGet, "/api/messages/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// Conversation opens the thread with userID, marking their messages read
func (c *Client) Conversation(ctx context.Context, userID string) ([]models.Message, error) {
	var msgs []models.Message
	if _, err := c.do(ctx, http.MethodGet, "/api/messages/conversation/"+url.PathEscape(userID), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// do sends a JSON request and decodes the envelope's data into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

func pageOf(env *envelope) Page {
	var p Page
	if env.Count != nil {
		p.Count = *env.Count
	}
	if env.Total != nil {
		p.Total = *env.Total
	}
	if env.Pages != nil {
		p.Pages = *env.Pages
	}
	if env.CurrentPage != nil {
		p.CurrentPage = *env.CurrentPage
	}
	return p
}
