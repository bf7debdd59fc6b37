package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reportdesk/report-desk-api/internal/models"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Callers use this to translate an optimistic insert loss into a
// domain conflict instead of a generic store failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// ReportRepository owns every record-store access pattern for reports and
// their assignment rows. It carries no business rules; interpretation of
// conflicts and absence belongs to the workflow engine.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report with its caller-supplied content document.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	if report.UpdatedAt.IsZero() {
		report.UpdatedAt = now
	}
	if report.Content == nil {
		report.Content = models.ReportContent{}
	}
	const query = `INSERT INTO reports
		(id, reporter_name, reporter_email, reported_institution, report_description,
		 institution_name, institution_id, numer_rspo, report_reason, content, created_at, updated_at)
		VALUES (:id, :reporter_name, :reporter_email, :reported_institution, :report_description,
		 :institution_name, :institution_id, :numer_rspo, :report_reason, :content, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID returns the report or nil when it does not exist.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT * FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find report %s: %w", id, err)
	}
	return &report, nil
}

// FindByIDs batch-fetches reports. An empty id set returns an empty result
// without a round-trip.
func (r *ReportRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Report, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM reports WHERE id IN (?) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build reports batch query: %w", err)
	}
	query = r.db.Rebind(query)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("find reports batch: %w", err)
	}
	return reports, nil
}

// FindAll returns every report, newest first.
func (r *ReportRepository) FindAll(ctx context.Context) ([]models.Report, error) {
	const query = `SELECT * FROM reports ORDER BY created_at DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// UpdateContent merges the supplied keys into the stored content document.
// Last write wins; there is no version token.
func (r *ReportRepository) UpdateContent(ctx context.Context, id string, patch models.ReportContent) error {
	const query = `UPDATE reports
		SET content = COALESCE(content, '{}'::jsonb) || $2, updated_at = $3
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, patch, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update report content %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated report rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindAssignment returns the assignment row for the report, regardless of
// owner, or nil when the report is unclaimed.
func (r *ReportRepository) FindAssignment(ctx context.Context, reportID string) (*models.Assignment, error) {
	const query = `SELECT * FROM report_assignments WHERE report_id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find assignment for report %s: %w", reportID, err)
	}
	return &assignment, nil
}

// FindAssignmentForModerator returns the assignment row only when it is
// owned by the given moderator, nil otherwise.
func (r *ReportRepository) FindAssignmentForModerator(ctx context.Context, reportID, moderatorID string) (*models.Assignment, error) {
	const query = `SELECT * FROM report_assignments WHERE report_id = $1 AND moderator_id = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, reportID, moderatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find assignment for report %s moderator %s: %w", reportID, moderatorID, err)
	}
	return &assignment, nil
}

// ListAssignmentsByModerator returns every assignment owned by a moderator.
func (r *ReportRepository) ListAssignmentsByModerator(ctx context.Context, moderatorID string) ([]models.Assignment, error) {
	const query = `SELECT * FROM report_assignments WHERE moderator_id = $1 ORDER BY assigned_at DESC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, moderatorID); err != nil {
		return nil, fmt.Errorf("list assignments for moderator %s: %w", moderatorID, err)
	}
	return assignments, nil
}

// ListAssignedReportIDs returns the ids of all currently claimed reports.
func (r *ReportRepository) ListAssignedReportIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT report_id FROM report_assignments`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list assigned report ids: %w", err)
	}
	return ids, nil
}

// CreateAssignment inserts the ownership row. The unique constraint on
// report_id rejects a second claim; that failure surfaces unwrapped enough
// for IsUniqueViolation to recognise it.
func (r *ReportRepository) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_assignments (id, report_id, moderator_id, assigned_at)
		VALUES (:id, :report_id, :moderator_id, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment for report %s: %w", assignment.ReportID, err)
	}
	return nil
}

// DeleteAssignment removes the ownership row, verifying the owner.
func (r *ReportRepository) DeleteAssignment(ctx context.Context, reportID, moderatorID string) error {
	const query = `DELETE FROM report_assignments WHERE report_id = $1 AND moderator_id = $2`
	result, err := r.db.ExecContext(ctx, query, reportID, moderatorID)
	if err != nil {
		return fmt.Errorf("delete assignment for report %s: %w", reportID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
