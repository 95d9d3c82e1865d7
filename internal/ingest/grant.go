package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/54b3r/edurag-go/internal/rag"
)

// GrantRecord is a structured grant opportunity to be flattened and indexed.
// Records arrive from the Grants.gov importer or from manual entry.
type GrantRecord struct {
	// ID uniquely identifies the grant; chunk IDs are "{ID}-{seq}".
	ID string `json:"id"`

	// Title is the official grant title.
	Title string `json:"title"`

	// Description covers goals and program details.
	Description string `json:"description"`

	// FunderID and FunderName identify the funding organization.
	FunderID   string `json:"funder_id,omitempty"`
	FunderName string `json:"funder_name,omitempty"`

	// EligibilityCriteria lists applicant requirements.
	EligibilityCriteria string `json:"eligibility_criteria,omitempty"`

	// MinAmount and MaxAmount bound the award, as display strings.
	MinAmount string `json:"min_amount,omitempty"`
	MaxAmount string `json:"max_amount,omitempty"`

	// ApplicationDeadline is the submission cutoff, as a display string.
	ApplicationDeadline string `json:"application_deadline,omitempty"`

	// SourceURL links to the grant information page.
	SourceURL string `json:"source_url,omitempty"`
}

// GrantAdapter ingests one structured grant record. Unlike the transcript
// adapters there is no remote fetch: the record itself is the content.
type GrantAdapter struct {
	record GrantRecord
}

// NewGrantAdapter builds an adapter for one grant indexing run.
func NewGrantAdapter(record GrantRecord) *GrantAdapter {
	return &GrantAdapter{record: record}
}

func (a *GrantAdapter) SourceType() string { return rag.SourceGrant }

// Resolve returns the grant's own ID; a record without one is an input error.
func (a *GrantAdapter) Resolve(string) (string, error) {
	if strings.TrimSpace(a.record.ID) == "" {
		return "", fmt.Errorf("grant record has no id")
	}
	return a.record.ID, nil
}

// Fetch flattens the structured record into indexable text. A record with
// neither title nor description has nothing to index.
func (a *GrantAdapter) Fetch(_ context.Context, _ string) (*Content, error) {
	if a.record.Title == "" && a.record.Description == "" {
		return nil, nil
	}

	var b strings.Builder
	writeField := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	writeField("Grant Title", a.record.Title)
	writeField("Funder", a.record.FunderName)
	writeField("Description", a.record.Description)
	writeField("Eligibility", a.record.EligibilityCriteria)
	switch {
	case a.record.MinAmount != "" && a.record.MaxAmount != "":
		writeField("Award Range", a.record.MinAmount+" to "+a.record.MaxAmount)
	case a.record.MinAmount != "":
		writeField("Award Range", a.record.MinAmount)
	case a.record.MaxAmount != "":
		writeField("Award Range", a.record.MaxAmount)
	}
	writeField("Application Deadline", a.record.ApplicationDeadline)

	return &Content{Text: b.String(), Title: a.record.Title}, nil
}

// IDPrefix uses a bare dash separator, giving chunk IDs like "GRANT-42-0".
func (a *GrantAdapter) IDPrefix(id string) string {
	return id + "-"
}

func (a *GrantAdapter) Metadata(id string, content *Content) rag.Metadata {
	extra := map[string]string{
		"doc_type": rag.SourceGrant,
		"grant_id": id,
	}
	if a.record.FunderID != "" {
		extra["funder_id"] = a.record.FunderID
	}
	return rag.Metadata{
		Title:      a.record.Title,
		SourceType: rag.SourceGrant,
		SourceRef:  a.record.SourceURL,
		EntityID:   id,
		Extra:      extra,
	}
}

func (a *GrantAdapter) Cleanup() error { return nil }
