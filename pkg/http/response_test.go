package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteSuccess(w, 201, "Client created", map[string]int{"id": 7})

	assert.Equal(t, 201, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Client created", body["message"])
	assert.Equal(t, map[string]any{"id": float64(7)}, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestWriteError_WithFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteBadRequest(w, "Validation failed", pkghttp.FieldError{Field: "firstName", Message: "this field is required"})

	assert.Equal(t, 400, w.Code)

	var resp pkghttp.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Validation failed", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "firstName", resp.Errors[0].Field)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		msg    string
	}{
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "Unauthorized") }, 401, "Unauthorized"},
		{"forbidden", func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "Forbidden") }, 403, "Forbidden"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "Client not found") }, 404, "Client not found"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "Username already exists") }, 409, "Username already exists"},
		{"too many", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "Rate limit exceeded") }, 429, "Rate limit exceeded"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w) }, 500, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["message"])
			assert.NotContains(t, body, "data")
		})
	}
}
