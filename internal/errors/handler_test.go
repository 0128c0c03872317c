package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeddiff/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	handler := NewErrorHandler(logger, true)
	assert.True(t, handler.includeStack)
	assert.NotNil(t, handler.logger)

	assert.NotNil(t, NewErrorHandler(nil, false).logger)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
		wantLevel  slog.Level
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
			wantLevel:  slog.LevelError,
		},
		{
			name:       "api error",
			err:        InvalidRequestWithError(fmt.Errorf("malformed form")),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "wrapped run not found",
			err:        fmt.Errorf("lookup: %w", ErrRunNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
			wantTitle:  "Not Found",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "payload too large",
			err:        ErrPayloadTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantTitle:  "Request Entity Too Large",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("failed to load feed", fmt.Errorf("feed header is missing")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFeedRejected,
			wantTitle:  "Feed Rejected",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "storage app error",
			err:        NewStorageError("failed to write report", fmt.Errorf("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeStorage,
			wantTitle:  "Storage Error",
			wantLevel:  slog.LevelError,
		},
		{
			name:       "generic error",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
			wantLevel:  slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/diffs/abc", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var problem map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, tt.wantTitle, problem["title"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
			assert.Equal(t, "/api/diffs/abc", problem["instance"])
			assert.NotContains(t, problem, "stack")

			testutil.AssertLogContains(t, logHandler, tt.wantLevel, "request failed")
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, w.Body.Len())
	assert.Zero(t, logHandler.Count())
}

func TestErrorHandler_AppErrorContext(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), false)
	r := httptest.NewRequest(http.MethodPost, "/api/diffs", nil)

	err := NewParsingError("failed to load feed", nil).WithContext("source", "feed1.csv")
	problem := handler.ErrorToProblem(err, r)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, "feed1.csv", problem.Extensions["source"])
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
	assert.Contains(t, problem, "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/api/diffs", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
	assert.Equal(t, "boom", problem["panic"])
	testutil.AssertLogContains(t, logHandler, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodPatch, "/api/diffs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "PATCH")
}
