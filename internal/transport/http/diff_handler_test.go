package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"feeddiff/internal/compare"
	apierrors "feeddiff/internal/errors"
	"feeddiff/internal/feed"
	"feeddiff/internal/middleware"
	"feeddiff/internal/report"
	"feeddiff/internal/services"
	"feeddiff/internal/shared/testutil"
)

const runID = "0b9f5c8e-3a53-4a39-9c0e-6d1c2f4f7a10"

func newTestRouter(t *testing.T, svc DiffServiceInterface, maxBody int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(maxBody, logger, errHandler)

	r := chi.NewRouter()
	r.Mount("/api/diffs", NewDiffHandler(svc, validator, errHandler, logger).Routes())
	return r
}

func sampleRun() *services.Run {
	rec1 := feed.Record{Date: "2024-01-01", Open: "1", High: "2", Low: "0", Close: "1", Volume: "10"}
	rec2 := rec1
	rec2.Close = "1.5"
	return &services.Run{
		ID:        runID,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Microsecond,
		Feed1:     &feed.LoadReport{Source: "a.csv", TotalRows: 1, Accepted: 1, Assets: 1},
		Feed2:     &feed.LoadReport{Source: "b.csv", TotalRows: 1, Accepted: 1, Assets: 1},
		Result:    compare.Compare(feed.Table{"A": {rec1}}, feed.Table{"A": {rec2}}),
	}
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, name := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(part, "asset_id,Date,Open,Close,High,Low,Volume\nA,d1,1,2,3,4,5\n")
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDiffHandler_CreateRun(t *testing.T) {
	svc := new(mockDiffService)
	svc.On("Run", mock.Anything,
		mock.MatchedBy(func(in services.FeedInput) bool { return in.Name == "a.csv" && in.Sheet == "Prices" && in.Reader != nil && in.RawValues }),
		mock.MatchedBy(func(in services.FeedInput) bool { return in.Name == "b.xlsx" && in.Sheet == "Prices" && in.RawValues }),
	).Return(sampleRun(), nil)

	body, contentType := multipartBody(t,
		map[string]string{"feed1": "a.csv", "feed2": "b.xlsx"},
		map[string]string{"sheet": "Prices", "raw_values": "true"})
	req := httptest.NewRequest(http.MethodPost, "/api/diffs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/diffs/"+runID, rec.Header().Get("Location"))

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID, resp.ID)
	assert.True(t, resp.HasDifferences)
	assert.Equal(t, 1, resp.Summary.Diffs)
	assert.InDelta(t, 1.5, resp.DurationMS, 0.001)
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.Result.Diffs, 1)
	assert.Equal(t, "/api/diffs/"+runID+"/report", resp.Links["report"])
	svc.AssertExpectations(t)
}

func TestDiffHandler_CreateRun_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		fields     map[string]string
		svcErr     error
		wantStatus int
	}{
		{
			name:       "missing feed2",
			files:      map[string]string{"feed1": "a.csv"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported extension",
			files:      map[string]string{"feed1": "a.csv", "feed2": "b.json"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "raw_values is not a boolean",
			files:      map[string]string{"feed1": "a.csv", "feed2": "b.csv"},
			fields:     map[string]string{"raw_values": "sometimes"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "feed cannot be parsed",
			files:      map[string]string{"feed1": "a.csv", "feed2": "b.csv"},
			svcErr:     apierrors.NewParsingError("feed header is missing required columns: Low", feed.ErrMissingColumn),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "store failure",
			files:      map[string]string{"feed1": "a.csv", "feed2": "b.csv"},
			svcErr:     errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDiffService)
			if tt.svcErr != nil {
				svc.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.svcErr)
			}

			body, contentType := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/diffs", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.svcErr == nil {
				svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDiffHandler_CreateRun_EnvelopeChecks(t *testing.T) {
	svc := new(mockDiffService)

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/diffs", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"feed1": "a.csv", "feed2": "b.csv"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/diffs", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newTestRouter(t, svc, 64).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("streamed body too large", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"feed1": "a.csv", "feed2": "b.csv"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/diffs", io.NopCloser(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newTestRouter(t, svc, 64).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiffHandler_ListRuns(t *testing.T) {
	summaries := []services.RunSummary{sampleRun().Summarize()}

	t.Run("filters are passed through", func(t *testing.T) {
		svc := new(mockDiffService)
		svc.On("List", mock.Anything, services.RunFilter{
			Limit:         5,
			OnlyDifferent: true,
			Since:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}).Return(summaries)

		req := httptest.NewRequest(http.MethodGet, "/api/diffs?limit=5&different=true&since=2024-01-01T00:00:00Z", nil)
		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeProblem(t, rec)
		assert.EqualValues(t, 1, body["count"])
		svc.AssertExpectations(t)
	})

	invalid := []struct {
		name  string
		query string
	}{
		{"limit not a number", "limit=abc"},
		{"limit too large", "limit=5000"},
		{"bad boolean", "different=maybe"},
		{"bad timestamp", "since=yesterday"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDiffService)
			req := httptest.NewRequest(http.MethodGet, "/api/diffs?"+tt.query, nil)
			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}
}

func TestDiffHandler_GetRun(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		run        *services.Run
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "found", id: runID, run: sampleRun(), wantStatus: http.StatusOK},
		{name: "unknown run", id: runID, err: services.ErrRunNotFound, wantStatus: http.StatusNotFound, wantType: apierrors.TypeRunNotFound},
		{name: "malformed id", id: "not-a-uuid", wantStatus: http.StatusBadRequest, wantType: apierrors.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDiffService)
			if tt.run != nil || tt.err != nil {
				svc.On("Get", mock.Anything, tt.id).Return(tt.run, tt.err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/diffs/"+tt.id, nil)
			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			} else {
				assert.Equal(t, runID, body["id"])
			}
		})
	}
}

func TestDiffHandler_GetReport(t *testing.T) {
	t.Run("csv by default", func(t *testing.T) {
		svc := new(mockDiffService)
		svc.On("Report", mock.Anything, runID, report.FormatCSV).Return([]byte("Type,Asset ID\n"), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/diffs/"+runID+"/report", nil)
		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.FormatCSV.ContentType(), rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "diff_"+runID+".csv")
		assert.Equal(t, "Type,Asset ID\n", rec.Body.String())
	})

	t.Run("xlsx", func(t *testing.T) {
		svc := new(mockDiffService)
		svc.On("Report", mock.Anything, runID, report.FormatXLSX).Return([]byte("PK"), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/diffs/"+runID+"/report?format=xlsx", nil)
		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
		assert.Equal(t, "2", rec.Header().Get("Content-Length"))
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(mockDiffService)
		req := httptest.NewRequest(http.MethodGet, "/api/diffs/"+runID+"/report?format=pdf", nil)
		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown run", func(t *testing.T) {
		svc := new(mockDiffService)
		svc.On("Report", mock.Anything, runID, report.FormatJSON).Return(nil, services.ErrRunNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/diffs/"+runID+"/report?format=json", nil)
		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDiffHandler_DeleteRun(t *testing.T) {
	svc := new(mockDiffService)
	svc.On("Delete", mock.Anything, runID).Return(nil).Once()
	svc.On("Delete", mock.Anything, runID).Return(services.ErrRunNotFound)

	router := newTestRouter(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/diffs/"+runID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/diffs/"+runID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewDiffHandler_NilService(t *testing.T) {
	assert.Panics(t, func() { NewDiffHandler(nil, nil, nil, nil) })
}

func TestMapServiceError(t *testing.T) {
	assert.Equal(t, apierrors.ErrRunNotFound, mapServiceError(services.ErrRunNotFound))

	other := context.Canceled
	assert.Equal(t, other, mapServiceError(other))
}
