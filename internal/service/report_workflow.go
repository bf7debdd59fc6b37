package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/dto"
	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/internal/repository"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
	"github.com/reportdesk/report-desk-api/pkg/storage"
)

const (
	cacheKeyReportsAll       = "reports:list:all"
	cacheKeyReportsAvailable = "reports:list:available"
	cacheKeyReportsPattern   = "reports:list:*"

	blobFolderUnassigned = "unassigned"
	defaultAttachmentExt = ".pdf"
	pdfContentType       = "application/pdf"
)

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Report, error)
	FindAll(ctx context.Context) ([]models.Report, error)
	UpdateContent(ctx context.Context, id string, patch models.ReportContent) error
	FindAssignment(ctx context.Context, reportID string) (*models.Assignment, error)
	FindAssignmentForModerator(ctx context.Context, reportID, moderatorID string) (*models.Assignment, error)
	ListAssignmentsByModerator(ctx context.Context, moderatorID string) ([]models.Assignment, error)
	ListAssignedReportIDs(ctx context.Context) ([]string, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	DeleteAssignment(ctx context.Context, reportID, moderatorID string) error
}

type moderatorResolver interface {
	Ensure(ctx context.Context, actor Actor) (*models.Moderator, error)
	Lookup(ctx context.Context, userID string) (*models.Moderator, error)
}

type linkSigner interface {
	Generate(reportID, blobPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, blobPath string, expiresAt time.Time, err error)
}

// ReportWorkflow is the state machine over reports: intake, claim,
// release and review. Ownership truth lives in the assignment rows;
// everything the outside world sees, including status, is derived from
// the content document on read.
type ReportWorkflow struct {
	reports    reportStore
	moderators moderatorResolver
	blobs      storage.BlobStore
	signer     linkSigner
	notifier   Notifier
	cache      *CacheService
	metrics    *MetricsService
	validate   *validator.Validate
	logger     *zap.Logger
	bucket     string
}

// NewReportWorkflow wires the workflow engine.
func NewReportWorkflow(
	reports reportStore,
	moderators moderatorResolver,
	blobs storage.BlobStore,
	signer linkSigner,
	notifier Notifier,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	bucket string,
) *ReportWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorkflow{
		reports:    reports,
		moderators: moderators,
		blobs:      blobs,
		signer:     signer,
		notifier:   notifier,
		cache:      cache,
		metrics:    metrics,
		validate:   validator.New(),
		logger:     logger,
		bucket:     bucket,
	}
}

// Create stores the uploaded document first and the report record second.
// When the record insert fails the already-uploaded blob is removed again;
// without a transaction across both stores this compensation is
// best-effort and a failed cleanup only leaves an orphaned file, never a
// dangling record.
func (s *ReportWorkflow) Create(ctx context.Context, req *dto.CreateReportRequest, pdfName string, pdfBytes []byte, extraContent models.ReportContent) (*dto.CreateReportResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if len(pdfBytes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pdf attachment required")
	}

	now := time.Now().UTC()
	blobPath := s.buildBlobPath(req, pdfName, now)

	content := models.ReportContent{
		models.ContentKeyStatus:  string(models.ReportStatusPending),
		models.ContentKeyPDFPath: blobPath,
	}
	for key, value := range extraContent {
		if _, reserved := content[key]; reserved {
			continue
		}
		content[key] = value
	}
	if req.NumerRSPO != "" {
		content[models.ContentKeyNumerRSPO] = req.NumerRSPO
	}

	report := &models.Report{
		ID:                  uuid.NewString(),
		ReporterName:        req.ReporterName,
		ReporterEmail:       req.ReporterEmail,
		ReportedInstitution: optional(req.ReportedInstitution),
		ReportDescription:   optional(req.ReportDescription),
		InstitutionName:     optional(req.InstitutionName),
		InstitutionID:       optional(req.InstitutionID),
		NumerRSPO:           optional(req.NumerRSPO),
		ReportReason:        optional(req.ReportReason),
		Content:             content,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	intake := newSaga(s.logger)
	intake.add(sagaStep{
		name: "upload",
		run: func(ctx context.Context) error {
			_, err := s.blobs.Upload(ctx, s.bucket, blobPath, pdfBytes, pdfContentType, false)
			return err
		},
		compensate: func(ctx context.Context) error {
			return s.blobs.Delete(ctx, s.bucket, []string{blobPath})
		},
	})
	intake.add(sagaStep{
		name: "insert",
		run: func(ctx context.Context) error {
			return s.reports.Create(ctx, report)
		},
	})

	if step, err := intake.execute(ctx); err != nil {
		s.metrics.ObserveTransition("create", "error")
		s.logger.Error("report intake failed",
			zap.String("step", step), zap.String("blob_path", blobPath), zap.Error(err))
		if step == "upload" {
			return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store report attachment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to persist report")
	}

	s.metrics.ObserveTransition("create", "ok")
	s.cache.Invalidate(ctx, cacheKeyReportsPattern)

	return &dto.CreateReportResponse{
		ReportID:      report.ID,
		PDFPath:       blobPath,
		InstitutionID: s.resolveInstitutionID(req),
	}, nil
}

// buildBlobPath namespaces the attachment by institution and submission
// date so a bucket listing stays navigable.
func (s *ReportWorkflow) buildBlobPath(req *dto.CreateReportRequest, pdfName string, now time.Time) string {
	folder := blobFolderUnassigned
	switch {
	case req.InstitutionID != "":
		folder = req.InstitutionID
	case req.NumerRSPO != "":
		folder = req.NumerRSPO
	}
	ext := strings.ToLower(filepath.Ext(pdfName))
	if ext == "" {
		ext = defaultAttachmentExt
	}
	return fmt.Sprintf("%s/%s/%s%s", folder, now.Format("2006-01-02"), uuid.NewString(), ext)
}

func (s *ReportWorkflow) resolveInstitutionID(req *dto.CreateReportRequest) string {
	switch {
	case req.InstitutionID != "":
		return req.InstitutionID
	case req.NumerRSPO != "":
		return req.NumerRSPO
	default:
		return req.ReportedInstitution
	}
}

// Assign claims the report for the acting moderator. The assignment row
// insert is the single writer gate: whoever gets the row owns the report,
// and a duplicate-key loss means someone else claimed it between the
// existence check and the insert.
func (s *ReportWorkflow) Assign(ctx context.Context, reportID string, actor Actor) (*dto.AssignmentResponse, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load report")
	}
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}

	moderator, err := s.moderators.Ensure(ctx, actor)
	if err != nil {
		return nil, err
	}

	existing, err := s.reports.FindAssignment(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to check assignment")
	}
	if existing != nil {
		s.metrics.ObserveTransition("assign", "conflict")
		if existing.ModeratorID == moderator.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "report already assigned to you")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "report assigned to another moderator")
	}

	assignedAt := time.Now().UTC()
	assignment := &models.Assignment{
		ReportID:    reportID,
		ModeratorID: moderator.ID,
		AssignedAt:  assignedAt,
	}

	claim := newSaga(s.logger)
	claim.add(sagaStep{
		name: "claim",
		run: func(ctx context.Context) error {
			return s.reports.CreateAssignment(ctx, assignment)
		},
		compensate: func(ctx context.Context) error {
			return s.reports.DeleteAssignment(ctx, reportID, moderator.ID)
		},
	})
	claim.add(sagaStep{
		name: "merge",
		run: func(ctx context.Context) error {
			return s.reports.UpdateContent(ctx, reportID, models.ReportContent{
				models.ContentKeyStatus:     string(models.ReportStatusAssigned),
				models.ContentKeyAssignedTo: moderator.ID,
				models.ContentKeyAssignedAt: assignedAt.Format(time.RFC3339),
			})
		},
	})

	if step, err := claim.execute(ctx); err != nil {
		if step == "claim" && repository.IsUniqueViolation(err) {
			s.metrics.ObserveTransition("assign", "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "report assigned to another moderator")
		}
		s.metrics.ObserveTransition("assign", "error")
		s.logger.Error("report claim failed",
			zap.String("step", step), zap.String("report_id", reportID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to assign report")
	}

	s.metrics.ObserveTransition("assign", "ok")
	s.cache.Invalidate(ctx, cacheKeyReportsPattern)

	return &dto.AssignmentResponse{
		Message:     "report assigned",
		ReportID:    reportID,
		ModeratorID: moderator.ID,
	}, nil
}

// Unassign releases the caller's claim. Releasing a report the caller
// does not own is a conflict, and repeating a successful release reports
// the same conflict rather than succeeding silently.
func (s *ReportWorkflow) Unassign(ctx context.Context, reportID string, actor Actor) (*dto.AssignmentResponse, error) {
	moderator, err := s.moderators.Ensure(ctx, actor)
	if err != nil {
		return nil, err
	}

	owned, err := s.reports.FindAssignmentForModerator(ctx, reportID, moderator.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to check assignment")
	}
	if owned == nil {
		s.metrics.ObserveTransition("unassign", "conflict")
		return nil, appErrors.Clone(appErrors.ErrConflict, "report not assigned to you")
	}

	if err := s.reports.DeleteAssignment(ctx, reportID, moderator.ID); err != nil {
		s.metrics.ObserveTransition("unassign", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to release assignment")
	}

	// Clearing the assignment keys keeps the document consistent with the
	// now-missing ownership row; nulls merged into jsonb read back as absent.
	if err := s.reports.UpdateContent(ctx, reportID, models.ReportContent{
		models.ContentKeyStatus:     string(models.ReportStatusPending),
		models.ContentKeyAssignedTo: nil,
		models.ContentKeyAssignedAt: nil,
	}); err != nil {
		s.metrics.ObserveTransition("unassign", "error")
		s.logger.Error("assignment released but content merge failed",
			zap.String("report_id", reportID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to update report state")
	}

	s.metrics.ObserveTransition("unassign", "ok")
	s.cache.Invalidate(ctx, cacheKeyReportsPattern)

	return &dto.AssignmentResponse{
		Message:     "report unassigned",
		ReportID:    reportID,
		ModeratorID: moderator.ID,
	}, nil
}

// Review completes a report owned by the caller. The completion notice to
// the reporter is fire-and-forget: a delivery failure is logged and the
// review still stands.
func (s *ReportWorkflow) Review(ctx context.Context, reportID string, actor Actor, req *dto.ReviewRequest) (*dto.ReviewResponse, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load report")
	}
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}

	moderator, err := s.moderators.Ensure(ctx, actor)
	if err != nil {
		return nil, err
	}

	owned, err := s.reports.FindAssignmentForModerator(ctx, reportID, moderator.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to check assignment")
	}
	if owned == nil {
		s.metrics.ObserveTransition("review", "conflict")
		return nil, appErrors.Clone(appErrors.ErrConflict, "report not assigned to you")
	}

	reviewNotes := req.ComparisonNotes
	if reviewNotes == "" {
		reviewNotes = req.Notes
	}

	patch := models.ReportContent{
		models.ContentKeyStatus:      string(models.ReportStatusCompleted),
		models.ContentKeyCompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if reviewNotes != "" {
		patch[models.ContentKeyReviewNotes] = reviewNotes
	}
	if req.Notes != "" {
		patch[models.ContentKeyNotes] = req.Notes
	}
	if len(req.Findings) > 0 {
		patch[models.ContentKeyFindings] = req.Findings
	}

	if err := s.reports.UpdateContent(ctx, reportID, patch); err != nil {
		s.metrics.ObserveTransition("review", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to complete review")
	}

	noticeNotes := reviewNotes
	if noticeNotes == "" {
		noticeNotes, _ = report.Content.String(models.ContentKeyReviewNotes)
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyCompleted(ctx, report, noticeNotes, moderator.DisplayName()); err != nil {
			s.logger.Warn("completion notification failed",
				zap.String("report_id", reportID), zap.Error(err))
		}
	}

	s.metrics.ObserveTransition("review", "ok")
	s.cache.Invalidate(ctx, cacheKeyReportsPattern)

	return &dto.ReviewResponse{
		Message:  "report review completed",
		ReportID: reportID,
		Status:   string(models.ReportStatusCompleted),
	}, nil
}

// ListAll returns every report, newest first.
func (s *ReportWorkflow) ListAll(ctx context.Context) ([]dto.ReportResponse, error) {
	var cached []dto.ReportResponse
	if s.cache.Get(ctx, cacheKeyReportsAll, &cached) {
		return cached, nil
	}

	reports, err := s.reports.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to list reports")
	}

	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, s.project(&reports[i], nil, ""))
	}
	s.cache.Set(ctx, cacheKeyReportsAll, out)
	return out, nil
}

// ListAvailable returns unclaimed pending reports. A report is excluded
// as soon as an ownership row exists, even before its content caught up.
func (s *ReportWorkflow) ListAvailable(ctx context.Context) ([]dto.ReportResponse, error) {
	var cached []dto.ReportResponse
	if s.cache.Get(ctx, cacheKeyReportsAvailable, &cached) {
		return cached, nil
	}

	reports, err := s.reports.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to list reports")
	}
	claimedIDs, err := s.reports.ListAssignedReportIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to list claimed reports")
	}
	claimed := make(map[string]struct{}, len(claimedIDs))
	for _, id := range claimedIDs {
		claimed[id] = struct{}{}
	}

	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		report := &reports[i]
		if _, taken := claimed[report.ID]; taken {
			continue
		}
		if report.Content.Status() != models.ReportStatusPending {
			continue
		}
		out = append(out, s.project(report, nil, ""))
	}
	s.cache.Set(ctx, cacheKeyReportsAvailable, out)
	return out, nil
}

// ListAssignedTo returns the caller's active workload.
func (s *ReportWorkflow) ListAssignedTo(ctx context.Context, actorID string) ([]dto.ReportResponse, error) {
	return s.listForModerator(ctx, actorID, models.ReportStatusAssigned)
}

// ListCompletedBy returns reports the caller finished and still owns.
func (s *ReportWorkflow) ListCompletedBy(ctx context.Context, actorID string) ([]dto.ReportResponse, error) {
	return s.listForModerator(ctx, actorID, models.ReportStatusCompleted)
}

func (s *ReportWorkflow) listForModerator(ctx context.Context, actorID string, want models.ReportStatus) ([]dto.ReportResponse, error) {
	moderator, err := s.moderators.Lookup(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if moderator == nil {
		return []dto.ReportResponse{}, nil
	}

	assignments, err := s.reports.ListAssignmentsByModerator(ctx, moderator.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to list assignments")
	}
	if len(assignments) == 0 {
		return []dto.ReportResponse{}, nil
	}

	byReport := make(map[string]*models.Assignment, len(assignments))
	ids := make([]string, 0, len(assignments))
	for i := range assignments {
		byReport[assignments[i].ReportID] = &assignments[i]
		ids = append(ids, assignments[i].ReportID)
	}

	reports, err := s.reports.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load assigned reports")
	}

	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		report := &reports[i]
		if report.Content.Status() != want {
			continue
		}
		out = append(out, s.project(report, byReport[report.ID], moderator.ID))
	}
	return out, nil
}

// PDFLink issues a signed, expiring download URL for the attachment.
func (s *ReportWorkflow) PDFLink(ctx context.Context, reportID string) (*dto.PDFLinkResponse, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load report")
	}
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	blobPath, ok := report.Content.String(models.ContentKeyPDFPath)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report has no attachment")
	}
	token, expiresAt, err := s.signer.Generate(reportID, blobPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &dto.PDFLinkResponse{
		ReportID:  reportID,
		URL:       fmt.Sprintf("/files/download?token=%s", token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// OpenAttachment validates a download token and streams the blob. The
// caller must close the reader.
func (s *ReportWorkflow) OpenAttachment(ctx context.Context, token string) (io.ReadCloser, string, error) {
	reportID, blobPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	reader, err := s.blobs.Open(ctx, s.bucket, blobPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "attachment not found")
	}
	filename := fmt.Sprintf("report-%s%s", reportID, filepath.Ext(blobPath))
	return reader, filename, nil
}

// project builds the external view of a report. assignment and callerID
// are fallbacks for the assignee when the content document has not
// caught up; callerID is only supplied on owner-scoped listings.
func (s *ReportWorkflow) project(report *models.Report, assignment *models.Assignment, callerID string) dto.ReportResponse {
	status := report.Content.Status()

	resp := dto.ReportResponse{
		ID:                  report.ID,
		ReporterName:        report.ReporterName,
		ReporterEmail:       report.ReporterEmail,
		ReportedInstitution: deref(report.ReportedInstitution),
		InstitutionName:     deref(report.InstitutionName),
		InstitutionID:       deref(report.InstitutionID),
		NumerRSPO:           deref(report.NumerRSPO),
		ReportDescription:   deref(report.ReportDescription),
		ReportReason:        deref(report.ReportReason),
		Status:              string(status),
		CreatedAt:           report.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           report.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if pdfPath, ok := report.Content.String(models.ContentKeyPDFPath); ok {
		resp.PDFPath = pdfPath
	}

	if status != models.ReportStatusPending {
		assignee, _ := report.Content.String(models.ContentKeyAssignedTo)
		if assignee == "" && assignment != nil {
			assignee = assignment.ModeratorID
		}
		if assignee == "" {
			assignee = callerID
		}
		resp.AssignedTo = assignee
		resp.AssignedAt = contentTimestamp(report.Content, models.ContentKeyAssignedAt, assignment)
	}
	if status == models.ReportStatusCompleted {
		resp.CompletedAt = contentTimestamp(report.Content, models.ContentKeyCompletedAt, nil)
	}
	return resp
}

// contentTimestamp normalises a document timestamp to RFC3339 UTC. A
// missing or unparseable value falls back to the assignment row, then to
// the current time; the projection never fails over a sloppy date.
func contentTimestamp(content models.ReportContent, key string, assignment *models.Assignment) string {
	if raw, ok := content.String(key); ok {
		if ts, err := parseLenientTime(raw); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	if assignment != nil && !assignment.AssignedAt.IsZero() {
		return assignment.AssignedAt.UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func parseLenientTime(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
