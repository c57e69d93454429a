package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, db, "Owner", "owner@example.com")
	other := mustUser(t, db, "Other", "other@example.com")

	t.Run("CreateAndGet", func(t *testing.T) {
		item := mustItem(t, db, owner.ID, "Drill")
		got, err := db.GetItemByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.Equal(t, "Drill", got.Name)
		assert.True(t, got.Available)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := db.GetItemByID(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrItemNotFound)

		err = db.UpdateItem(ctx, &models.Item{ID: 9999, Name: "x"})
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		item := mustItem(t, db, owner.ID, "Saw")
		item.Available = false
		item.Description = "Sharp saw"
		require.NoError(t, db.UpdateItem(ctx, item))

		got, err := db.GetItemByID(ctx, item.ID)
		require.NoError(t, err)
		assert.False(t, got.Available)
		assert.Equal(t, "Sharp saw", got.Description)
	})

	t.Run("GetItemsByOwnerPaged", func(t *testing.T) {
		mustItem(t, db, other.ID, "Ladder")

		items, err := db.GetItemsByOwner(ctx, owner.ID, models.Page{From: 0, Size: 10})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Drill", items[0].Name)
		assert.Equal(t, "Saw", items[1].Name)

		items, err = db.GetItemsByOwner(ctx, owner.ID, models.Page{From: 1, Size: 10})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Saw", items[0].Name)
	})

	t.Run("Search", func(t *testing.T) {
		items, err := db.SearchItems(ctx, "dRiLl", models.Page{Size: 10})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Drill", items[0].Name)

		// unavailable items are excluded
		items, err = db.SearchItems(ctx, "saw", models.Page{Size: 10})
		require.NoError(t, err)
		assert.Empty(t, items)

		// description matches too
		items, err = db.SearchItems(ctx, "ladder desc", models.Page{Size: 10})
		require.NoError(t, err)
		assert.Len(t, items, 1)

		// LIKE wildcards are literal
		items, err = db.SearchItems(ctx, "%", models.Page{Size: 10})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, db, "Owner", "owner@example.com")
	author := mustUser(t, db, "Author", "author@example.com")
	drill := mustItem(t, db, owner.ID, "Drill")
	saw := mustItem(t, db, owner.ID, "Saw")

	first := &models.Comment{ItemID: drill.ID, AuthorID: author.ID, Text: "great", Created: time.Now().Add(-time.Hour)}
	second := &models.Comment{ItemID: drill.ID, AuthorID: author.ID, Text: "still great"}
	require.NoError(t, db.CreateComment(ctx, first))
	require.NoError(t, db.CreateComment(ctx, second))
	assert.NotZero(t, second.ID)
	assert.False(t, second.Created.IsZero())

	byItem, err := db.GetCommentsByItems(ctx, []int64{drill.ID, saw.ID})
	require.NoError(t, err)
	require.Len(t, byItem[drill.ID], 2)
	assert.Equal(t, "great", byItem[drill.ID][0].Text)
	assert.Equal(t, "Author", byItem[drill.ID][0].AuthorName)
	assert.Empty(t, byItem[saw.ID])

	empty, err := db.GetCommentsByItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
