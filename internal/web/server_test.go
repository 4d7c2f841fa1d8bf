package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/postclean/internal/config"
	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/metrics"
)

const sampleCSV = "created_at,text,entities\n" +
	"2021-07-26T10:15:00Z,Go #gym,\"{'hashtags': [{'tag': 'gym'}, {'tag': 'worlds'}], 'mentions': []}\"\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, limiter *core.Limiter, opts ...Option) *Server {
	t.Helper()
	var svcOpts []core.Option
	if limiter != nil {
		svcOpts = append(svcOpts, core.WithLimiter(limiter))
	}
	svc, err := core.NewService(core.ParserReplace, svcOpts...)
	require.NoError(t, err)
	return NewServer(svc, cfg, opts...)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleClean_RawBody(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "created_at,text,entities,date,tweet_length,hashtags,hashtag_count,mentions,mentions_count", lines[0])
	assert.Contains(t, lines[1], "2021-07-26 10:15:00+00:00,Go #gym,")
	assert.True(t, strings.HasSuffix(lines[1], ",2021-07-26,7,\"['gym', 'worlds']\",2,[],0"), lines[1])
}

func TestHandleClean_Multipart(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "tweets.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, sampleCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/clean", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "['gym', 'worlds']")
}

func TestHandleClean_MultipartWithoutFile(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/clean", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)
}

func TestHandleClean_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty body", "", http.StatusBadRequest, "FILE004"},
		{"ragged rows", "created_at,text,entities\na,b\n", http.StatusBadRequest, "FILE002"},
		{"missing column", "created_at,text\n2021-07-26,hi\n", http.StatusUnprocessableEntity, "VAL004"},
		{"bad timestamp", "created_at,text,entities\nyesterday,hi,{}\n", http.StatusUnprocessableEntity, "VAL002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(t), nil)

			req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandleClean_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clean.MaxFileSize = 16
	srv := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE003", decodeError(t, rec).Code)
}

func TestHandleClean_LimiterFull(t *testing.T) {
	limiter := core.NewLimiter(1, 20*time.Millisecond)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	srv := newTestServer(t, testConfig(t), limiter)

	req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "UPL002", decodeError(t, rec).Code)
}

func TestHandleStatus(t *testing.T) {
	limiter := core.NewLimiter(4, time.Second)
	srv := newTestServer(t, testConfig(t), limiter)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status core.LimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, core.LimiterStatus{Active: 0, Available: 4, MaxConcurrent: 4}, status)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		status int
		want   healthResponse
	}{
		{"no database", nil, http.StatusOK, healthResponse{Status: "ok"}},
		{"database up", []Option{WithDatabase(fakePinger{})}, http.StatusOK,
			healthResponse{Status: "ok", Database: "ok"}},
		{"database down", []Option{WithDatabase(fakePinger{errors.New("connection refused")})},
			http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(t), nil, tt.opts...)

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.status, rec.Code)
			var got healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := metrics.New()
	svc, err := core.NewService(core.ParserReplace, core.WithObserver(reg))
	require.NoError(t, err)
	srv := NewServer(svc, testConfig(t), WithMetrics(reg))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(sampleCSV)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `postclean_runs_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "postclean_rows_total 1")
}

func TestMetricsRouteAbsentWithoutRegistry(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{core.ErrTooManyCleans, http.StatusServiceUnavailable},
		{core.ErrNoFile, http.StatusBadRequest},
		{fmt.Errorf("read: %w", core.ErrMalformedInput), http.StatusBadRequest},
		{&core.ParseError{Row: 1, Column: "created_at", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{core.ErrMissingColumn, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}

func TestBodyError(t *testing.T) {
	wrapped := fmt.Errorf("%w: %w", core.ErrMalformedInput, &http.MaxBytesError{Limit: 10})
	err := bodyError(wrapped)
	assert.ErrorIs(t, err, core.ErrFileTooLarge)
	assert.NotErrorIs(t, err, core.ErrMalformedInput)

	plain := errors.New("plain")
	assert.Same(t, plain, bodyError(plain))
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv := newTestServer(t, cfg, nil)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "guess", http.StatusForbidden},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")
}
