package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "volgrid/internal/errors"
	"volgrid/internal/services"
	api "volgrid/pkg/contracts/api/v1"
)

// ResultsHandler serves the files written by the exporters: solved quote
// tables, grids and meshes in CSV or XLSX form.
type ResultsHandler struct {
	service      ResultsServiceInterface
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(service ResultsServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ResultsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResultsHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "results")),
	}
}

// Routes returns a chi router for results endpoints
func (h *ResultsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.ListResults)
	r.Get("/{filename}", h.DownloadResult)

	return r
}

// ListResults handles GET /api/results
func (h *ResultsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListResults(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoFilesFound) {
			render.JSON(w, r, &api.ResultsResponse{
				Status: api.StatusSuccess,
				Files:  []api.ResultFile{},
			})
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out := make([]api.ResultFile, 0, len(files))
	for _, f := range files {
		out = append(out, api.ResultFile{
			Name:      f.Name,
			SizeBytes: f.SizeBytes,
			Modified:  f.Modified.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	render.JSON(w, r, &api.ResultsResponse{
		Status: api.StatusSuccess,
		Files:  out,
		Count:  len(out),
	})
}

// DownloadResult handles GET /api/results/{filename}
func (h *ResultsHandler) DownloadResult(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	err := h.service.ServeResult(r.Context(), w, r, filename)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrFileNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError(filename))
	case errors.Is(err, services.ErrInvalidInput):
		h.logger.WarnContext(r.Context(), "rejected result download",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "invalid file name"))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
