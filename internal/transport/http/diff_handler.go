package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"feeddiff/internal/compare"
	"feeddiff/internal/config"
	apierrors "feeddiff/internal/errors"
	"feeddiff/internal/feed"
	"feeddiff/internal/middleware"
	"feeddiff/internal/report"
	"feeddiff/internal/services"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files
const multipartMemory = 8 << 20

// DiffHandler handles diff run HTTP requests
type DiffHandler struct {
	service    DiffServiceInterface
	validator  *middleware.ValidationMiddleware
	errHandler *apierrors.ErrorHandler
	logger     *slog.Logger
}

// NewDiffHandler creates a new diff handler
func NewDiffHandler(service DiffServiceInterface, validator *middleware.ValidationMiddleware, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *DiffHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errHandler == nil {
		errHandler = apierrors.NewErrorHandler(logger, false)
	}
	if validator == nil {
		validator = middleware.NewValidationMiddleware(config.DefaultMaxUploadBytes, logger, errHandler)
	}
	return &DiffHandler{
		service:    service,
		validator:  validator,
		errHandler: errHandler,
		logger:     logger.With(slog.String("handler", "diffs")),
	}
}

// Routes returns a chi router for the diff endpoints
func (h *DiffHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(
		h.validator.LimitBody,
		middleware.ContentTypeValidator(h.errHandler, "multipart/form-data"),
	).Post("/", h.CreateRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Get("/{id}/report", h.GetReport)
	r.Delete("/{id}", h.DeleteRun)

	return r
}

// uploadRequest describes the multipart form of POST /api/diffs
type uploadRequest struct {
	Feed1 string `json:"feed1" validate:"required,filename,feedext"`
	Feed2 string `json:"feed2" validate:"required,filename,feedext"`
	Sheet string `json:"sheet" validate:"omitempty,max=31"`
	// RawValues reads XLSX cells as stored instead of as displayed
	RawValues string `json:"raw_values" validate:"omitempty,boolean"`
}

type listQuery struct {
	Limit     int    `query:"limit" validate:"gte=0,lte=1000"`
	Different bool   `query:"different"`
	Since     string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type reportQuery struct {
	Format string `query:"format" validate:"omitempty,oneof=csv xlsx json"`
}

type runPath struct {
	ID string `json:"id" validate:"required,uuid"`
}

// RunResponse is the API view of a completed run
type RunResponse struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	DurationMS     float64           `json:"duration_ms"`
	Feed1          *feed.LoadReport  `json:"feed1"`
	Feed2          *feed.LoadReport  `json:"feed2"`
	Summary        compare.Summary   `json:"summary"`
	HasDifferences bool              `json:"has_differences"`
	Result         *compare.Result   `json:"result,omitempty"`
	Links          map[string]string `json:"links"`
}

func newRunResponse(run *services.Run, withResult bool) *RunResponse {
	resp := &RunResponse{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		DurationMS: float64(run.Duration.Microseconds()) / 1000,
		Feed1:      run.Feed1,
		Feed2:      run.Feed2,
		Links: map[string]string{
			"self":   "/api/diffs/" + run.ID,
			"report": "/api/diffs/" + run.ID + "/report",
		},
	}
	if run.Result != nil {
		resp.Summary = run.Result.Summary
		resp.HasDifferences = run.Result.HasDifferences()
		if withResult {
			resp.Result = run.Result
		}
	}
	return resp
}

// Render implements render.Renderer
func (rr *RunResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// CreateRun handles POST /api/diffs
func (h *DiffHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file1, header1, err := formFile(r, "feed1")
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}
	defer file1.Close()

	file2, header2, err := formFile(r, "feed2")
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}
	defer file2.Close()

	req := uploadRequest{
		Feed1:     header1.Filename,
		Feed2:     header2.Filename,
		Sheet:     r.FormValue("sheet"),
		RawValues: r.FormValue("raw_values"),
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("feed1.name", req.Feed1),
		attribute.String("feed2.name", req.Feed2),
	)

	raw, _ := strconv.ParseBool(req.RawValues)
	run, err := h.service.Run(ctx,
		services.FeedInput{Name: req.Feed1, Reader: file1, Sheet: req.Sheet, RawValues: raw},
		services.FeedInput{Name: req.Feed2, Reader: file2, Sheet: req.Sheet, RawValues: raw},
	)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "diff run created",
		slog.String("run_id", run.ID),
		slog.String("request_id", middleware.GetReqID(ctx)))

	w.Header().Set("Location", "/api/diffs/"+run.ID)
	render.Status(r, http.StatusCreated)
	render.Render(w, r, newRunResponse(run, true))
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, apierrors.ErrValidation(field, field+" is required")
	}
	if err != nil {
		return nil, nil, apierrors.InvalidRequestWithError(err)
	}
	return file, header, nil
}

// ListRuns handles GET /api/diffs
func (h *DiffHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var q listQuery
	if err := h.validator.DecodeQuery(r.URL.Query(), &q); err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	filter := services.RunFilter{Limit: q.Limit, OnlyDifferent: q.Different}
	if q.Since != "" {
		since, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			h.errHandler.HandleError(w, r, apierrors.ErrValidation("since", "since must be an RFC 3339 timestamp"))
			return
		}
		filter.Since = since
	}

	runs := h.service.List(r.Context(), filter)
	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/diffs/{id}
func (h *DiffHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	render.Render(w, r, newRunResponse(run, true))
}

// GetReport handles GET /api/diffs/{id}/report
func (h *DiffHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	var q reportQuery
	if err := h.validator.DecodeQuery(r.URL.Query(), &q); err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}
	format, err := report.ParseFormat(q.Format)
	if err != nil {
		h.errHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	data, err := h.service.Report(r.Context(), id, format)
	if err != nil {
		h.errHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName("diff_"+id)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write report", slog.String("error", err.Error()))
	}
}

// DeleteRun handles DELETE /api/diffs/{id}
func (h *DiffHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DiffHandler) runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := runPath{ID: chi.URLParam(r, "id")}
	if err := h.validator.ValidateStruct(&p); err != nil {
		h.errHandler.HandleError(w, r, err)
		return "", false
	}
	return p.ID, true
}

func (h *DiffHandler) lookup(w http.ResponseWriter, r *http.Request) (*services.Run, bool) {
	id, ok := h.runID(w, r)
	if !ok {
		return nil, false
	}
	run, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errHandler.HandleError(w, r, mapServiceError(err))
		return nil, false
	}
	return run, true
}

// mapServiceError converts service sentinels to API errors
func mapServiceError(err error) error {
	if errors.Is(err, services.ErrRunNotFound) {
		return apierrors.ErrRunNotFound
	}
	return err
}
