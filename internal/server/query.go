// Package server — query.go contains the retrieval, recommendation, and
// grounded-answer HTTP handlers.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/recommend"
)

// handleRetrieve handles POST /api/retrieve. A query runs a single search; a
// keyword list fans out into one search per keyword with merged results.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" && len(req.Keywords) == 0 {
		writeError(w, r, http.StatusBadRequest, "query or keywords is required")
		return
	}
	if req.Query != "" && len(req.Keywords) > 0 {
		writeError(w, r, http.StatusBadRequest, "query and keywords are mutually exclusive")
		return
	}

	filters := parseFilters(req.Filters)
	var (
		res *rag.Result
		err error
	)
	if req.Query != "" {
		res, err = s.deps.Retriever.Retrieve(r.Context(), req.Query, req.TopK, filters...)
	} else {
		res, err = s.deps.Retriever.RetrieveKeywords(r.Context(), req.Keywords, req.TopK, filters...)
	}
	if err != nil {
		s.writeRetrievalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, retrieveResponse{
		Query:     res.Query,
		Hits:      newHitDTOs(res.Hits),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

// handleRecommend handles POST /api/recommend: keyword fan-out retrieval
// followed by deduplication or grouping of the merged hits.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, r, http.StatusBadRequest, "keywords is required")
		return
	}
	mode := strings.ToLower(req.Mode)
	if mode == "" {
		mode = "merged"
	}
	switch mode {
	case "flat", "distinct", "grouped", "merged":
	default:
		writeError(w, r, http.StatusBadRequest, "mode must be one of: flat, distinct, grouped, merged")
		return
	}

	res, err := s.deps.Retriever.RetrieveKeywords(r.Context(), req.Keywords, req.TopK, parseFilters(req.Filters)...)
	if err != nil {
		s.writeRetrievalError(w, r, err)
		return
	}

	var hits []rag.Hit
	switch mode {
	case "flat":
		hits = recommend.Flat(res.Hits)
	case "distinct":
		hits = recommend.DistinctByEntity(res.Hits)
	case "merged":
		// Collapse each entity to its best-scoring hit across keywords.
		hits = recommend.MergeKeywords(res.Hits)
	case "grouped":
		writeJSON(w, r, http.StatusOK, groupedResponse{
			Query:     res.Query,
			Groups:    newGroupDTOs(recommend.GroupByEntity(res.Hits)),
			ElapsedMS: res.Elapsed.Milliseconds(),
		})
		return
	}

	writeJSON(w, r, http.StatusOK, retrieveResponse{
		Query:     res.Query,
		Hits:      newHitDTOs(hits),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

// handleAsk handles POST /api/ask: retrieval-grounded answer generation.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "answer generation is not configured")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	ans, err := s.deps.Generator.Generate(r.Context(), req.Question, parseFilters(req.Filters)...)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: answer generation failed", slog.Any("error", err))
		writeError(w, r, http.StatusBadGateway, "answer generation failed")
		return
	}
	writeJSON(w, r, http.StatusOK, ans)
}

// writeRetrievalError maps retrieval failures to HTTP statuses: empty input
// is the caller's fault, backend failures are upstream faults.
func (s *Server) writeRetrievalError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, rag.ErrEmptyQuery) {
		writeError(w, r, http.StatusBadRequest, "query must not be empty")
		return
	}
	logging.FromContext(r.Context()).Error("server: retrieval failed", slog.Any("error", err))
	writeError(w, r, http.StatusBadGateway, "retrieval failed")
}
