package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/internal/repository"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
)

type moderatorStore interface {
	FindByID(ctx context.Context, id string) (*models.Moderator, error)
	Create(ctx context.Context, moderator *models.Moderator) error
}

// Actor is the resolved identity performing a workflow transition. The
// display attributes come from the bearer token and seed the moderator
// record on first contact; only the id is load-bearing.
type Actor struct {
	ID       string
	FullName string
	Email    string
}

// ModeratorDirectory translates a resolved identity into a moderator
// record, creating a minimal one on first contact.
type ModeratorDirectory struct {
	moderators moderatorStore
	logger     *zap.Logger
}

// NewModeratorDirectory constructs the directory.
func NewModeratorDirectory(moderators moderatorStore, logger *zap.Logger) *ModeratorDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModeratorDirectory{moderators: moderators, logger: logger}
}

// Ensure returns the moderator for the actor, creating it when absent.
// The token's display attributes, when present, seed the new record so
// notifications can name the moderator instead of showing a raw id. The
// get-or-create is idempotent under concurrent callers: losing the insert
// race means someone else created the row first, so the duplicate-key
// failure is retried exactly once as a plain lookup.
func (d *ModeratorDirectory) Ensure(ctx context.Context, actor Actor) (*models.Moderator, error) {
	if actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "moderator identity required")
	}

	moderator, err := d.moderators.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load moderator")
	}
	if moderator != nil {
		return moderator, nil
	}

	candidate := &models.Moderator{
		ID:       actor.ID,
		FullName: optional(actor.FullName),
		Email:    optional(actor.Email),
	}
	if err := d.moderators.Create(ctx, candidate); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to create moderator")
		}
		d.logger.Debug("moderator insert lost race, retrying as lookup", zap.String("moderator_id", actor.ID))
		moderator, err = d.moderators.FindByID(ctx, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to reload moderator")
		}
		if moderator == nil {
			return nil, appErrors.Clone(appErrors.ErrStoreFailed, "moderator vanished after duplicate-key insert")
		}
		return moderator, nil
	}

	return candidate, nil
}

// Lookup returns the moderator or nil without creating one. Read-only list
// views use this: an identity that never interacted with assignment simply
// has no workload.
func (d *ModeratorDirectory) Lookup(ctx context.Context, userID string) (*models.Moderator, error) {
	if userID == "" {
		return nil, nil
	}
	moderator, err := d.moderators.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailed.Code, appErrors.ErrStoreFailed.Status, "failed to load moderator")
	}
	return moderator, nil
}
