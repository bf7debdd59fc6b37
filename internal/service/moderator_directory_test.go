package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/models"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
)

type stubModeratorStore struct {
	findByIDFn func(ctx context.Context, id string) (*models.Moderator, error)
	createFn   func(ctx context.Context, moderator *models.Moderator) error
}

func (s *stubModeratorStore) FindByID(ctx context.Context, id string) (*models.Moderator, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (s *stubModeratorStore) Create(ctx context.Context, moderator *models.Moderator) error {
	if s.createFn != nil {
		return s.createFn(ctx, moderator)
	}
	return nil
}

func TestEnsureRejectsEmptyIdentity(t *testing.T) {
	directory := NewModeratorDirectory(&stubModeratorStore{}, zap.NewNop())

	_, err := directory.Ensure(context.Background(), Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestEnsureReturnsExistingModerator(t *testing.T) {
	name := "Anna Nowak"
	store := &stubModeratorStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Moderator, error) {
			return &models.Moderator{ID: id, FullName: &name}, nil
		},
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			t.Fatal("create must not run when the row exists")
			return nil
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	moderator, err := directory.Ensure(context.Background(), Actor{ID: "mod-1"})
	require.NoError(t, err)
	assert.Equal(t, "Anna Nowak", moderator.DisplayName())
}

func TestEnsureCreatesOnFirstContact(t *testing.T) {
	created := false
	store := &stubModeratorStore{
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			created = true
			return nil
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	moderator, err := directory.Ensure(context.Background(), Actor{ID: "mod-1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "mod-1", moderator.ID)
}

func TestEnsureSeedsProfileFromActor(t *testing.T) {
	var created *models.Moderator
	store := &stubModeratorStore{
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			created = moderator
			return nil
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	moderator, err := directory.Ensure(context.Background(), Actor{
		ID:       "mod-1",
		FullName: "Anna Nowak",
		Email:    "anna@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, created.FullName)
	assert.Equal(t, "Anna Nowak", *created.FullName)
	require.NotNil(t, created.Email)
	assert.Equal(t, "anna@example.com", *created.Email)
	assert.Equal(t, "Anna Nowak", moderator.DisplayName())
}

func TestEnsureLostInsertRaceRetriesAsLookup(t *testing.T) {
	lookups := 0
	store := &stubModeratorStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Moderator, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &models.Moderator{ID: id}, nil
		},
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			return &pq.Error{Code: "23505"}
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	moderator, err := directory.Ensure(context.Background(), Actor{ID: "mod-1"})
	require.NoError(t, err)
	assert.Equal(t, "mod-1", moderator.ID)
	assert.Equal(t, 2, lookups)
}

func TestEnsureSurfacesNonDuplicateInsertFailure(t *testing.T) {
	store := &stubModeratorStore{
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			return errors.New("insert boom")
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	_, err := directory.Ensure(context.Background(), Actor{ID: "mod-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreFailed.Code, appErrors.FromError(err).Code)
}

func TestLookupNeverCreates(t *testing.T) {
	store := &stubModeratorStore{
		createFn: func(ctx context.Context, moderator *models.Moderator) error {
			t.Fatal("lookup must not create")
			return nil
		},
	}
	directory := NewModeratorDirectory(store, zap.NewNop())

	moderator, err := directory.Lookup(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Nil(t, moderator)
}
