//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/healthdesk/internal/app"
	"github.com/BradenHooton/healthdesk/internal/config"
	"github.com/BradenHooton/healthdesk/internal/database"
)

// TestServer wraps httptest.Server around the fully wired API
type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Config *config.Config
}

// NewTestServer builds the production router over db. Rate limits are raised
// and timing padding is disabled so tests run quickly.
func NewTestServer(db *database.DB, logger *slog.Logger) *TestServer {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:       15 * time.Minute,
			RefreshTokenExpiry:      7 * 24 * time.Hour,
			CleanupInterval:         time.Hour,
			BcryptCost:              4,
			LoginRateLimitPerMinute: 10000,
			CookieSameSite:          "lax",
		},
		Server: config.ServerConfig{
			Env:            "test",
			RequestTimeout: 30 * time.Second,
		},
	}

	api := app.New(cfg, db, logger, prometheus.NewRegistry())
	return &TestServer{
		Server: httptest.NewServer(api.Router),
		App:    api,
		Config: cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Response is a read-and-closed HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope decodes the standard response envelope
func (r *Response) Envelope(t *testing.T) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(r.Body, &env), string(r.Body))
	return env
}

// Decode unmarshals the raw body into target
func (r *Response) Decode(t *testing.T, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, target), string(r.Body))
}

// Envelope mirrors the API response envelope
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Request sends a JSON request to the test server. token may be empty.
func (ts *TestServer) Request(t *testing.T, method, path, token string, body any) *Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, ts.Server.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
}

// Session is the body of a successful login or refresh
type Session struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// SignupAndLogin registers username with role and returns its session
func (ts *TestServer) SignupAndLogin(t *testing.T, username, role string) Session {
	t.Helper()

	resp := ts.Request(t, http.MethodPost, "/signup", "", map[string]string{
		"username": username,
		"password": TestPassword,
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	return ts.Login(t, username, TestPassword)
}

// Login authenticates and returns the session, failing the test otherwise
func (ts *TestServer) Login(t *testing.T, username, password string) Session {
	t.Helper()

	resp := ts.Request(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	var session Session
	resp.Decode(t, &session)
	require.NotEmpty(t, session.Token)
	return session
}

// CreateResource posts body and returns the id of the created entity
func (ts *TestServer) CreateResource(t *testing.T, path, token string, body any) int64 {
	t.Helper()

	resp := ts.Request(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Envelope(t).Data, &created))
	require.NotZero(t, created.ID, fmt.Sprintf("no id in %s", resp.Body))
	return created.ID
}
