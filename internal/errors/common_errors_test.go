package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "with cause",
			err:  NewParsingError("bad strike cell", errors.New("strconv: invalid syntax")),
			want: "[PARSING] bad strike cell: strconv: invalid syntax",
		},
		{
			name: "without cause",
			err:  NewAppValidationError("valuation date missing"),
			want: "[VALIDATION] valuation date missing",
		},
		{
			name: "grid error",
			err:  NewGridError("pivot produced no cells", nil),
			want: "[GRID] pivot produced no cells",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("series is empty")
	err := NewMarketDataError("dividend series unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := NewSolverError("batch failed", nil).
		WithContext("quotes", 120).
		WithContext("valuation_date", "2024-03-15")

	require.NotNil(t, err.Context)
	assert.Equal(t, 120, err.Context["quotes"])
	assert.Equal(t, "2024-03-15", err.Context["valuation_date"])
}

func TestAppError_WithContextNilMap(t *testing.T) {
	err := &AppError{Type: ErrTypeStorage, Message: "write failed"}
	err.WithContext("path", "/tmp/grid.csv")
	assert.Equal(t, "/tmp/grid.csv", err.Context["path"])
}

func TestAppErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
	}{
		{"parsing", NewParsingError("m", nil), ErrTypeParsing},
		{"market data", NewMarketDataError("m", nil), ErrTypeMarketData},
		{"solver", NewSolverError("m", nil), ErrTypeSolver},
		{"grid", NewGridError("m", nil), ErrTypeGrid},
		{"surface", NewSurfaceError("m", nil), ErrTypeSurface},
		{"storage", NewStorageError("m", nil), ErrTypeStorage},
		{"validation", NewAppValidationError("m"), ErrTypeValidation},
		{"config", NewConfigError("m", nil), ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
		})
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("quote file")
	assert.Equal(t, ErrTypeNotFound, err.Type)
	assert.Equal(t, "[NOT_FOUND] quote file not found", err.Error())
}

func TestAppError_ErrorsAs(t *testing.T) {
	var appErr *AppError
	wrapped := NewConfigError("bad interpolation method", errors.New(`unknown interpolation method: "cubic"`))

	require.ErrorAs(t, error(wrapped), &appErr)
	assert.Equal(t, ErrTypeConfig, appErr.Type)
}
