package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "context deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "context canceled",
			err:        fmt.Errorf("calculation aborted: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unparsed quotes",
			err:        errors.New("no parseable quote rows (read 10, skipped 10)"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeQuotesUnparsed,
		},
		{
			name:       "grid without observations",
			err:        errors.New("no solved observations to build a grid from: 4 quotes offered"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeGridEmpty,
		},
		{
			name:       "grid pruned empty",
			err:        errors.New("no strikes survive observation pruning: threshold 5 over 3 expirations"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeGridEmpty,
		},
		{
			name:       "surface extrapolation",
			err:        errors.New("query outside surface domain, extrapolation disabled: tau 2.1 beyond last expiration 0.5"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSurfaceDomain,
		},
		{
			name:       "empty market series",
			err:        errors.New("index levels: series is empty"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMarketData,
		},
		{
			name:       "plain not found",
			err:        errors.New("run 0b51a9 not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "unknown error",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/grid", nil)
			problem := h.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/v1/grid", problem.Instance)
		})
	}
}

func TestErrorHandler_APIErrorToProblem(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name     string
		apiErr   *APIError
		wantType string
	}{
		{"validation", ErrValidationFailed, TypeValidation},
		{"run not found", ErrRunNotFound, TypeNotFound},
		{"no solvable quotes", ErrNoSolvableQuotes, TypeSolveFailed},
		{"grid empty", ErrGridEmpty, TypeGridEmpty},
		{"rate limit", ErrRateLimitExceeded, TypeRateLimit},
		{"service unavailable", ErrServiceUnavailable, TypeServiceDown},
		{"internal", ErrInternalServer, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/solve", nil)
			problem := h.ErrorToProblem(tt.apiErr, r)

			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.apiErr.StatusCode, problem.Status)
			assert.Equal(t, tt.apiErr.ErrorCode, problem.Extensions["error_code"])
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	h := testHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/grid", nil)

	h.HandleError(w, r, ErrGridEmpty)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeGridEmpty, body["type"])
	assert.Contains(t, body, "trace_id")
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	h := testHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	h.HandleError(w, r, nil)
	assert.Empty(t, w.Body.String())
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	h := testHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/surface", nil)

	h.HandlePanic(w, r, "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
}

func TestErrorHandler_HandlePanicWithStack(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/surface", nil)

	h.HandlePanic(w, r, "boom")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "stack")
	assert.Equal(t, "boom", body["panic"])
}

func TestErrorHandler_NotFound(t *testing.T) {
	h := testHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/nope", nil)

	h.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	h := testHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/api/v1/grid", nil)

	h.MethodNotAllowed(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "DELETE")
}

func TestErrorHandler_Middleware(t *testing.T) {
	h := testHandler()

	t.Run("passes through", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		w := httptest.NewRecorder()
		h.Middleware(next).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("recovers panics", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("unexpected")
		})

		w := httptest.NewRecorder()
		h.Middleware(next).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
