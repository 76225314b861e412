package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"check-review-gateway/internal/config"
	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/review"
)

type stubUpstream struct{}

func (stubUpstream) GetCheck(context.Context, int) (*models.Check, error) {
	return &models.Check{}, nil
}

func (stubUpstream) UpdateCheck(context.Context, int, map[string]any) (*models.Check, error) {
	return &models.Check{}, nil
}

func (stubUpstream) SearchContacts(context.Context, string, string) (*models.ContactSearchResponse, error) {
	return &models.ContactSearchResponse{}, nil
}

func (stubUpstream) SubmitBatch(context.Context, int, bool) (*models.SubmitResponse, error) {
	return &models.SubmitResponse{Success: true}, nil
}

func (stubUpstream) Upload(context.Context, string, io.Reader, string) (*models.UploadResponse, error) {
	return &models.UploadResponse{Success: true}, nil
}

func (stubUpstream) ListBatches(context.Context) ([]models.Batch, error) {
	return []models.Batch{{ID: 1, Filename: "a.pdf"}}, nil
}

func (stubUpstream) FindBatch(context.Context, int) (*models.Batch, error) {
	return &models.Batch{ID: 1}, nil
}

func (stubUpstream) DeleteBatch(context.Context, int) error {
	return nil
}

func (stubUpstream) StreamStatus(context.Context, int, func(models.ProcessingStatus) bool) error {
	return nil
}

func newTestRouter(t *testing.T, logs io.Writer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Dependencies{
		Upstream: stubUpstream{},
		Sessions: review.NewRegistry(),
		Review:   config.ReviewConfig{IndexPath: "/"},
		Logger:   zerolog.New(logs),
	})
	return r
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, io.Discard)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	r := newTestRouter(t, io.Discard)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `check_review_http_requests_total{method="GET",path="/api/batches",status="200"}`)
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/api/health", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.Equal(t, "request", entry["message"])
}

func TestRequestLogger_GeneratesID(t *testing.T) {
	r := newTestRouter(t, io.Discard)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}
