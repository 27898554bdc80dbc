package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "volgrid/internal/errors"
	"volgrid/internal/middleware"
	"volgrid/internal/services"
	"volgrid/internal/volatility"
	api "volgrid/pkg/contracts/api/v1"
	"volgrid/pkg/contracts/domain"
)

// VolatilityHandler serves the solve, grid and surface mesh endpoints.
type VolatilityHandler struct {
	service      VolatilityServiceInterface
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewVolatilityHandler creates a new volatility handler
func NewVolatilityHandler(service VolatilityServiceInterface, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *VolatilityHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &VolatilityHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "volatility")),
	}
}

// Routes returns a chi router for volatility endpoints
func (h *VolatilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/solve", h.Solve)
	r.Post("/grid", h.BuildGrid)
	r.Post("/surface/mesh", h.BuildMesh)

	return r
}

// bindRequest decodes and validates a request body. Bind covers the
// cross-field rules, the validator covers the per-field tags. A false
// return means the error response has been written.
func (h *VolatilityHandler) bindRequest(w http.ResponseWriter, r *http.Request, data render.Binder, span trace.Span) bool {
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		h.logger.WarnContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())))
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validation.ValidateStruct(data); err != nil {
		span.RecordError(err)
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// Solve handles POST /api/volatility/solve
func (h *VolatilityHandler) Solve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("volatility-handler")
	ctx, span := tracer.Start(ctx, "volatility_handler.solve",
		trace.WithAttributes(
			attribute.String("http.route", "/api/volatility/solve"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	data := &api.SolveRequest{}
	if !h.bindRequest(w, r, data, span) {
		return
	}

	valuation, err := domain.ParseDate(data.ValuationDate)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	qs, err := toQuotes(data.Quotes, valuation)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	mkt, err := toMarket(data.Market)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	res, err := h.service.SolveBatch(ctx, qs, mkt, toSolverConfig(data.Solver))
	if err != nil {
		span.RecordError(err)
		h.handleSolveError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("solve.run_id", res.RunID),
		attribute.Int("solve.total", res.Summary.Total),
		attribute.Int("solve.failed", res.Summary.Failed),
	)

	render.JSON(w, r, &api.SolveResponse{
		Status:        api.StatusSuccess,
		RunID:         res.RunID,
		ValuationDate: data.ValuationDate,
		Rows:          fromSolved(res.Solved),
		Summary:       fromSummary(res.Summary),
		ElapsedMS:     res.Elapsed.Milliseconds(),
	})
}

// BuildGrid handles POST /api/volatility/grid
func (h *VolatilityHandler) BuildGrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("volatility-handler")
	ctx, span := tracer.Start(ctx, "volatility_handler.build_grid",
		trace.WithAttributes(
			attribute.String("http.route", "/api/volatility/grid"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	data := &api.GridRequest{}
	if !h.bindRequest(w, r, data, span) {
		return
	}

	valuation, err := domain.ParseDate(data.ValuationDate)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	var solved []volatility.SolvedQuote
	if len(data.Quotes) > 0 {
		qs, err := toQuotes(data.Quotes, valuation)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		mkt, err := toMarket(data.Market)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		solveRes, err := h.service.SolveBatch(ctx, qs, mkt, toSolverConfig(data.Solver))
		if err != nil {
			span.RecordError(err)
			h.handleSolveError(w, r, err)
			return
		}
		span.SetAttributes(attribute.String("solve.run_id", solveRes.RunID))
		solved = solveRes.Solved
	} else {
		if solved, err = toSolvedQuotes(data.Solved, valuation); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}

	res, err := h.service.BuildGrid(ctx, solved, toGridConfig(data.Grid))
	if err != nil {
		span.RecordError(err)
		h.handleGridError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("grid.run_id", res.RunID),
		attribute.Int("grid.expirations", res.Grid.Rows()),
		attribute.Int("grid.strikes", res.Grid.Cols()),
	)

	render.JSON(w, r, &api.GridResponse{
		Status:    api.StatusSuccess,
		RunID:     res.RunID,
		Grid:      fromGrid(res.Grid),
		Insights:  fromInsights(res.Insights),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

// BuildMesh handles POST /api/volatility/surface/mesh
func (h *VolatilityHandler) BuildMesh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("volatility-handler")
	ctx, span := tracer.Start(ctx, "volatility_handler.build_mesh",
		trace.WithAttributes(
			attribute.String("http.route", "/api/volatility/surface/mesh"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	data := &api.MeshRequest{}
	if !h.bindRequest(w, r, data, span) {
		return
	}

	grid, err := toGrid(data.Grid)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	surfaceOpts, err := toSurfaceOptions(data.Surface)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	res, err := h.service.BuildMesh(ctx, grid, data.Spot, surfaceOpts, toMeshConfig(data.Mesh))
	if err != nil {
		span.RecordError(err)
		h.handleMeshError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("mesh.run_id", res.RunID),
		attribute.Int("mesh.points", len(res.Points)),
	)

	render.JSON(w, r, &api.MeshResponse{
		Status:    api.StatusSuccess,
		RunID:     res.RunID,
		Count:     len(res.Points),
		Points:    fromMesh(res.Points),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

// handleSolveError maps solve failures to API errors. Per-quote failures
// ride on the response rows, so anything surfacing here aborted the batch.
func (h *VolatilityHandler) handleSolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoQuotes):
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// handleGridError maps grid construction failures. An empty pivot or fully
// pruned strike set is a data condition, not a malformed request.
func (h *VolatilityHandler) handleGridError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoSolvedQuotes):
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	case errors.Is(err, volatility.ErrNoObservations), errors.Is(err, volatility.ErrNoSurvivingStrikes):
		h.errorHandler.HandleError(w, r, apierrors.GridBuildError(err))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// handleMeshError maps surface fit and sampling failures. Once the request
// has validated, fit failures mean the grid cannot support a surface.
func (h *VolatilityHandler) handleMeshError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoGrid):
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	case errors.Is(err, volatility.ErrExtrapolation):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusUnprocessableEntity, "EXTRAPOLATION",
			"surface query left the fitted domain", err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.errorHandler.HandleError(w, r, err)
	default:
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusUnprocessableEntity, "SURFACE_FIT_FAILED",
			"grid cannot support a surface fit", err.Error()))
	}
}
