package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "simple message",
			apiError: &APIError{
				StatusCode: http.StatusBadRequest,
				ErrorCode:  "INVALID_REQUEST",
				Message:    "Invalid request format",
			},
			want: "Invalid request format",
		},
		{
			name: "empty message",
			apiError: &APIError{
				StatusCode: http.StatusInternalServerError,
				ErrorCode:  "INTERNAL_ERROR",
				Message:    "",
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.apiError.Error()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIError_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	err := ErrGridEmpty.Render(w, r)
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	got := New(http.StatusUnprocessableEntity, "GRID_EMPTY", "No usable observations for the volatility grid")

	assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode)
	assert.Equal(t, "GRID_EMPTY", got.ErrorCode)
	assert.Equal(t, "No usable observations for the volatility grid", got.Message)
	assert.Nil(t, got.Details)
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]int{"quotes": 0}
	got := NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", details)

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, details, got.Details)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"run not found", ErrRunNotFound, http.StatusNotFound, "RUN_NOT_FOUND"},
		{"no solvable quotes", ErrNoSolvableQuotes, http.StatusUnprocessableEntity, "NO_SOLVABLE_QUOTES"},
		{"grid empty", ErrGridEmpty, http.StatusUnprocessableEntity, "GRID_EMPTY"},
		{"solve failed", ErrSolveFailed, http.StatusInternalServerError, "SOLVE_FAILED"},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	got := ErrValidation("valuation_date", "must be present")

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", got.ErrorCode)

	detail, ok := got.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "valuation_date", detail.Field)
	assert.Equal(t, "must be present", detail.Message)
}

func TestGridBuildError(t *testing.T) {
	cause := errors.New("no solved observations to build a grid from")
	got := GridBuildError(cause)

	assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode)
	assert.Equal(t, "GRID_EMPTY", got.ErrorCode)
	assert.Equal(t, cause.Error(), got.Details)
}

func TestNotFoundError(t *testing.T) {
	got := NotFoundError("surface run")
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, "surface run not found", got.Message)
}

func TestFileSystemError(t *testing.T) {
	got := FileSystemError("grid export", errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Contains(t, got.Message, "grid export")
	assert.Equal(t, "disk full", got.Details)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrGridEmpty)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GRID_EMPTY", resp.Error.ErrorCode)
}

func TestNewValidationErrors(t *testing.T) {
	got := NewValidationErrors([]ValidationError{
		{Field: "strike", Message: "must be positive"},
		{Field: "option_type", Message: "unknown side"},
	})

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	details, ok := got.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}

func TestErrPanic(t *testing.T) {
	got := ErrPanic("index out of range")

	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	rec, ok := got.Details.(PanicRecovery)
	require.True(t, ok)
	assert.Equal(t, "index out of range", rec.Message)
}
