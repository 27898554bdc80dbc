package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "volgrid/internal/errors"
	"volgrid/internal/services"
)

// MockResultsService is a mock implementation of ResultsServiceInterface
type MockResultsService struct {
	mock.Mock
}

func (m *MockResultsService) ListResults(ctx context.Context) ([]services.ResultFile, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ResultFile), args.Error(1)
}

func (m *MockResultsService) ServeResult(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error {
	args := m.Called(w, r, filename)
	return args.Error(0)
}

func newResultsTestHandler(svc ResultsServiceInterface) *ResultsHandler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewResultsHandler(svc, apierrors.NewErrorHandler(logger, false), logger)
}

func TestResultsHandler_ListResults(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockResultsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "lists exported files",
			setupMock: func(m *MockResultsService) {
				files := []services.ResultFile{
					{Name: "grid_2025-01-02.csv", SizeBytes: 2048, Modified: time.Date(2025, 1, 2, 17, 0, 0, 0, time.UTC)},
					{Name: "solved_2025-01-02.csv", SizeBytes: 4096, Modified: time.Date(2025, 1, 2, 16, 0, 0, 0, time.UTC)},
				}
				m.On("ListResults").Return(files, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name: "empty directory lists no files",
			setupMock: func(m *MockResultsService) {
				m.On("ListResults").Return(nil, services.ErrNoFilesFound)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"files":[]`,
		},
		{
			name: "filesystem errors are internal",
			setupMock: func(m *MockResultsService) {
				m.On("ListResults").Return(nil, errors.New("stat out: permission denied"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockResultsService)
			tt.setupMock(mockService)
			handler := newResultsTestHandler(mockService)

			req := httptest.NewRequest("GET", "/", nil)
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestResultsHandler_DownloadResult(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockResultsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "streams the file",
			target: "/grid_2025-01-02.csv",
			setupMock: func(m *MockResultsService) {
				m.On("ServeResult", mock.Anything, mock.Anything, "grid_2025-01-02.csv").
					Run(func(args mock.Arguments) {
						w := args.Get(0).(http.ResponseWriter)
						w.Header().Set("Content-Type", "text/csv")
						w.Write([]byte("expiration_date,strike,vol\n"))
					}).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "expiration_date,strike,vol",
		},
		{
			name:   "missing file is 404",
			target: "/nope.csv",
			setupMock: func(m *MockResultsService) {
				m.On("ServeResult", mock.Anything, mock.Anything, "nope.csv").
					Return(services.ErrFileNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "NOT_FOUND",
		},
		{
			name:   "rejected file name is 400",
			target: "/evil.csv",
			setupMock: func(m *MockResultsService) {
				m.On("ServeResult", mock.Anything, mock.Anything, "evil.csv").
					Return(services.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockResultsService)
			tt.setupMock(mockService)
			handler := newResultsTestHandler(mockService)

			req := httptest.NewRequest("GET", tt.target, nil)
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
