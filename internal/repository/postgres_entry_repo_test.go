package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/soullog/internal/model"
)

func TestPostgresEntryRepo_CreateListDelete(t *testing.T) {
	db := setupTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresEntryRepo(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, &model.ExternalProfile{ID: "google-entries"})
	require.NoError(t, err)

	for _, e := range []*model.JournalEntry{
		{UserID: user.ID, Type: model.EntryTypeMind, Category: model.CategoryHappy, Content: "good day"},
		{UserID: user.ID, Type: model.EntryTypeBody, Category: model.CategoryHydration, Content: "water"},
		{UserID: user.ID, Type: model.EntryTypeBody, Category: model.CategoryExercise, Content: "run"},
	} {
		require.NoError(t, repo.Create(ctx, e))
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}

	all, err := repo.ListByUser(ctx, user.ID, EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	body, err := repo.ListByUser(ctx, user.ID, EntryFilter{Type: model.EntryTypeBody})
	require.NoError(t, err)
	assert.Len(t, body, 2)
	for _, e := range body {
		assert.Equal(t, model.EntryTypeBody, e.Type)
	}

	n, err := repo.DeleteByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err = repo.ListByUser(ctx, user.ID, EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPostgresEntryRepo_Create_UnknownUserIsIntegrityError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresEntryRepo(db)

	err := repo.Create(context.Background(), &model.JournalEntry{
		UserID:   "00000000-0000-0000-0000-000000000000",
		Type:     model.EntryTypeSoul,
		Category: model.CategoryGratitude,
		Content:  "orphan",
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrDependencyUnavailable)
}
