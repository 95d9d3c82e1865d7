// Package server — ingest.go contains the HTTP handlers that run the
// deduplicating ingestion pipeline for each content source.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/54b3r/edurag-go/internal/ingest"
	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/runs"
)

// maxUploadBytes caps document uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// runIngest executes the pipeline for one adapter under the per-source lock,
// records the run, updates metrics, and writes the structured result.
// The result is always 200 — per-run failures are reported in the body, not
// as transport errors.
func (s *Server) runIngest(w http.ResponseWriter, r *http.Request, a ingest.Adapter, ref string) {
	log := logging.FromContext(r.Context())

	// One writer per source key: concurrent runs for the same source would
	// race on sequence allocation and double-allocate chunk IDs.
	unlock := s.sources.lock(a.SourceType() + ":" + ref)
	defer unlock()

	res := s.deps.Ingestor.Run(r.Context(), a, ref)

	s.observeIngest(res)
	if s.deps.Runs != nil {
		if err := s.deps.Runs.Record(r.Context(), res); err != nil {
			log.Warn("server: failed to record ingestion run", slog.Any("error", err))
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}

// handleIngestYouTube handles POST /api/ingest/youtube.
func (s *Server) handleIngestYouTube(w http.ResponseWriter, r *http.Request) {
	if s.deps.YouTube == nil {
		writeError(w, r, http.StatusServiceUnavailable, "youtube ingestion is not configured")
		return
	}
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, r, http.StatusBadRequest, "url is required")
		return
	}
	a := ingest.NewYouTubeAdapter(s.deps.YouTube, s.cfg.OrgID, s.cfg.OrgAppName)
	s.runIngest(w, r, a, req.URL)
}

// handleIngestBoclips handles POST /api/ingest/boclips.
func (s *Server) handleIngestBoclips(w http.ResponseWriter, r *http.Request) {
	if s.deps.Boclips == nil {
		writeError(w, r, http.StatusServiceUnavailable, "boclips ingestion is not configured")
		return
	}
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, r, http.StatusBadRequest, "url is required")
		return
	}
	a := ingest.NewBoclipsAdapter(s.deps.Boclips, s.cfg.OrgID, s.cfg.OrgAppName)
	s.runIngest(w, r, a, req.URL)
}

// handleIngestDocument handles POST /api/ingest/document. The request is a
// multipart form with a single "file" part. The upload is spooled to a temp
// file which the adapter deletes when the run finishes, pass or fail.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart form with a 'file' part is required")
		return
	}
	defer file.Close()

	path, err := s.spoolUpload(file, header.Filename)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: failed to spool upload", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to store upload")
		return
	}

	a := ingest.NewDocumentAdapter(path, header.Filename, s.cfg.OrgID, s.cfg.OrgAppName)
	s.runIngest(w, r, a, header.Filename)
}

// handleIngestGrant handles POST /api/ingest/grant. The body is the grant
// record itself.
func (s *Server) handleIngestGrant(w http.ResponseWriter, r *http.Request) {
	var rec ingest.GrantRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(rec.ID) == "" {
		writeError(w, r, http.StatusBadRequest, "id is required")
		return
	}
	a := ingest.NewGrantAdapter(rec)
	s.runIngest(w, r, a, rec.ID)
}

// handleRuns handles GET /api/runs?source_type=&limit=.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "run history is not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := s.deps.Runs.Recent(r.Context(), r.URL.Query().Get("source_type"), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: run listing failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if recs == nil {
		recs = []runs.Record{}
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// spoolUpload copies an uploaded file into the configured upload directory
// under a collision-free name that keeps the original extension (the
// extractor dispatches on it).
func (s *Server) spoolUpload(src io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.cfg.UploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
