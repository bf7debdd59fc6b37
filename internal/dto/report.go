package dto

// CreateReportRequest carries the multipart form fields accompanying the
// uploaded document. Institution metadata is optional; reporter identity
// is not.
type CreateReportRequest struct {
	ReporterName        string `form:"reporter_name" validate:"required"`
	ReporterEmail       string `form:"reporter_email" validate:"required,email"`
	ReportedInstitution string `form:"reported_institution"`
	ReportDescription   string `form:"report_description"`
	InstitutionName     string `form:"institution_name"`
	InstitutionID       string `form:"institution_id"`
	NumerRSPO           string `form:"numer_rspo"`
	ReportReason        string `form:"report_reason"`
}

// CreateReportResponse returns the stored identifiers.
type CreateReportResponse struct {
	ReportID      string `json:"report_id"`
	PDFPath       string `json:"pdf_path,omitempty"`
	InstitutionID string `json:"institution_id,omitempty"`
}

// ReportResponse is the external projection of a report with its derived
// workflow state.
type ReportResponse struct {
	ID                  string `json:"id"`
	ReporterName        string `json:"reporter_name"`
	ReporterEmail       string `json:"reporter_email"`
	ReportedInstitution string `json:"reported_institution,omitempty"`
	InstitutionName     string `json:"institution_name,omitempty"`
	InstitutionID       string `json:"institution_id,omitempty"`
	NumerRSPO           string `json:"numer_rspo,omitempty"`
	ReportDescription   string `json:"report_description,omitempty"`
	ReportReason        string `json:"report_reason,omitempty"`
	Status              string `json:"status"`
	AssignedTo          string `json:"assigned_to,omitempty"`
	AssignedAt          string `json:"assigned_at,omitempty"`
	CompletedAt         string `json:"completed_at,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
	PDFPath             string `json:"pdf_path,omitempty"`
}

// ReviewRequest completes a report. ComparisonNotes is the structured notes
// field; Notes is the legacy free-text fallback.
type ReviewRequest struct {
	ComparisonNotes string                 `json:"comparison_notes"`
	Notes           string                 `json:"notes"`
	Findings        map[string]interface{} `json:"findings,omitempty"`
}

// AssignmentResponse acknowledges assign/unassign transitions.
type AssignmentResponse struct {
	Message     string `json:"message"`
	ReportID    string `json:"report_id"`
	ModeratorID string `json:"moderator_id,omitempty"`
}

// ReviewResponse acknowledges a completed review.
type ReviewResponse struct {
	Message  string `json:"message"`
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

// PDFLinkResponse returns a signed, expiring download URL for the report
// attachment.
type PDFLinkResponse struct {
	ReportID  string `json:"report_id"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
