package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportStatus is the derived workflow state of a report. It is never
// stored as a dedicated column; it lives inside the open content document
// and is re-derived on every read.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusAssigned  ReportStatus = "assigned"
	ReportStatusCompleted ReportStatus = "completed"
)

// Content document keys carrying workflow state.
const (
	ContentKeyStatus        = "status"
	ContentKeyAssignedTo    = "assigned_to"
	ContentKeyAssignedAt    = "assigned_at"
	ContentKeyCompletedAt   = "completed_at"
	ContentKeyReviewNotes   = "review_notes"
	ContentKeyFindings      = "findings"
	ContentKeyNotes         = "notes"
	ContentKeyPDFPath       = "pdf_storage_path"
	ContentKeyNumerRSPO     = "numer_rspo"
	ContentKeySubmittedByID = "submitted_by_user_id"
)

// ReportContent is the schema-less document holding workflow state and any
// submitter-supplied payload. It is merged key-by-key on every transition,
// never wholesale replaced, and persisted as JSONB.
type ReportContent map[string]interface{}

// Value marshals the content document for persistence.
func (c ReportContent) Value() (driver.Value, error) {
	if c == nil {
		c = ReportContent{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal report content: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the content document.
func (c *ReportContent) Scan(value interface{}) error {
	if value == nil {
		*c = ReportContent{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportContent", value)
	}
	if len(data) == 0 {
		*c = ReportContent{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal report content: %w", err)
	}
	return nil
}

// String returns the value under key when it is a non-empty string.
func (c ReportContent) String(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	raw, ok := c[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Status derives the workflow state from the content document alone. An
// unknown or legacy shape falls back to pending.
func (c ReportContent) Status() ReportStatus {
	raw, ok := c.String(ContentKeyStatus)
	if !ok {
		return ReportStatusPending
	}
	switch ReportStatus(raw) {
	case ReportStatusPending, ReportStatusAssigned, ReportStatusCompleted:
		return ReportStatus(raw)
	default:
		return ReportStatusPending
	}
}

// Report is a submitted complaint case backed by an uploaded document.
type Report struct {
	ID                  string        `db:"id" json:"id"`
	ReporterName        string        `db:"reporter_name" json:"reporter_name"`
	ReporterEmail       string        `db:"reporter_email" json:"reporter_email"`
	ReportedInstitution *string       `db:"reported_institution" json:"reported_institution,omitempty"`
	ReportDescription   *string       `db:"report_description" json:"report_description,omitempty"`
	InstitutionName     *string       `db:"institution_name" json:"institution_name,omitempty"`
	InstitutionID       *string       `db:"institution_id" json:"institution_id,omitempty"`
	NumerRSPO           *string       `db:"numer_rspo" json:"numer_rspo,omitempty"`
	ReportReason        *string       `db:"report_reason" json:"report_reason,omitempty"`
	Content             ReportContent `db:"content" json:"content"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}
