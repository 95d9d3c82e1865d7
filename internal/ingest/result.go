package ingest

import (
	"fmt"
	"time"
)

// SkippedChunk records one chunk that was not inserted because an existing
// chunk in the index was similar enough to count as a duplicate.
type SkippedChunk struct {
	// Index is the chunk's position within this ingestion run.
	Index int `json:"index"`

	// DuplicateOf is the ID of the existing chunk that matched.
	DuplicateOf string `json:"duplicate_of"`

	// Score is the similarity score of the match.
	Score float32 `json:"score"`
}

// Result is the structured outcome of one ingestion run. Runs never panic or
// return a bare error past their boundary: asynchronous callers always get a
// Result and inspect Error / Message.
type Result struct {
	// SourceType is the rag.Source* constant of the adapter that ran.
	SourceType string `json:"source_type"`

	// SourceRef is the reference the run was invoked with (URL, file path,
	// record ID).
	SourceRef string `json:"source_ref"`

	// SourceID is the resolved canonical identifier; empty if resolution
	// failed.
	SourceID string `json:"source_id,omitempty"`

	// Title is the source title, when the fetch produced one.
	Title string `json:"title,omitempty"`

	// TotalChunks is how many chunks the normalized text split into.
	TotalChunks int `json:"total_chunks"`

	// InsertedIDs lists the chunk IDs inserted by this run, in order.
	InsertedIDs []string `json:"inserted_ids"`

	// Skipped lists the chunks recorded as duplicates.
	Skipped []SkippedChunk `json:"skipped,omitempty"`

	// SkippedCount is len(Skipped), kept explicit for serialized summaries.
	SkippedCount int `json:"skipped_count"`

	// Elapsed is the wall-clock duration of the run, always set, including
	// failed runs.
	Elapsed time.Duration `json:"elapsed"`

	// Message explains runs that ended without touching the index, e.g.
	// "no transcript available".
	Message string `json:"message,omitempty"`

	// Error holds the diagnostic text of a run-fatal failure. Per-chunk
	// failures do not set it.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run hit a run-fatal error.
func (r *Result) Failed() bool { return r.Error != "" }

// Summary returns a one-line human-readable account of the run.
func (r *Result) Summary() string {
	if r.Failed() {
		return fmt.Sprintf("%s %s: failed: %s", r.SourceType, r.SourceRef, r.Error)
	}
	if r.Message != "" && r.TotalChunks == 0 {
		return fmt.Sprintf("%s %s: %s", r.SourceType, r.SourceRef, r.Message)
	}
	return fmt.Sprintf("%s %s: inserted %d of %d chunks (%d duplicates) in %s",
		r.SourceType, r.SourceRef, len(r.InsertedIDs), r.TotalChunks, r.SkippedCount, r.Elapsed.Round(time.Millisecond))
}
