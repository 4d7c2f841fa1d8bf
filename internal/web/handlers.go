package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/logging"
	"github.com/JonMunkholm/postclean/internal/web/middleware"
)

// multipartMemory is how much of a multipart upload is kept in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// handleClean cleans the uploaded CSV and returns the result as CSV.
// The body is either raw CSV or a multipart form with a "file" field.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Clean.MaxFileSize)

	in, closeIn, err := requestCSV(r)
	if err != nil {
		respondError(w, r, bodyError(err))
		return
	}
	defer closeIn()

	var out bytes.Buffer
	run, err := s.service.CleanStream(r.Context(), in, &out)
	if err != nil {
		if run != nil {
			w.Header().Set(middleware.RunIDHeader, run.RunID.String())
		}
		respondError(w, r, bodyError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cleaned.csv"`)
	w.Header().Set(middleware.RunIDHeader, run.RunID.String())
	w.Header().Set("X-Row-Count", strconv.Itoa(run.Rows))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.WriteHeader(http.StatusOK)
	out.WriteTo(w)
}

// requestCSV returns the CSV payload of r and a func releasing it.
func requestCSV(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.ContentLength == 0 {
			return nil, nil, core.ErrNoFile
		}
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: invalid multipart form: %w", core.ErrMalformedInput, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrNoFile, err)
	}
	return file, func() {
		file.Close()
		r.MultipartForm.RemoveAll()
	}, nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// handleHealth reports liveness, and database reachability when a sink is
// configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		respondHealthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}

func respondHealthError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("health check failed", "error", err)
	writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"})
}

// handleStatus reports limiter usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	l := s.service.Limiter()
	if l == nil {
		writeJSON(w, http.StatusOK, map[string]any{"limited": false})
		return
	}
	writeJSON(w, http.StatusOK, l.Status())
}
