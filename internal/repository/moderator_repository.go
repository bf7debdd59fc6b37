package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/reportdesk/report-desk-api/internal/models"
)

// ModeratorRepository persists moderator records keyed by the identity
// resolver's user id.
type ModeratorRepository struct {
	db *sqlx.DB
}

// NewModeratorRepository constructs the repository.
func NewModeratorRepository(db *sqlx.DB) *ModeratorRepository {
	return &ModeratorRepository{db: db}
}

// FindByID returns the moderator or nil when absent.
func (r *ModeratorRepository) FindByID(ctx context.Context, id string) (*models.Moderator, error) {
	const query = `SELECT * FROM moderators WHERE id = $1`
	var moderator models.Moderator
	if err := r.db.GetContext(ctx, &moderator, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find moderator %s: %w", id, err)
	}
	return &moderator, nil
}

// Create inserts a minimal moderator record. A duplicate-key failure is
// left recognisable through IsUniqueViolation for the directory's
// insert-then-retry-as-lookup path.
func (r *ModeratorRepository) Create(ctx context.Context, moderator *models.Moderator) error {
	if moderator.CreatedAt.IsZero() {
		moderator.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO moderators (id, full_name, email, image_url, created_at)
		VALUES (:id, :full_name, :email, :image_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, moderator); err != nil {
		return fmt.Errorf("create moderator %s: %w", moderator.ID, err)
	}
	return nil
}
