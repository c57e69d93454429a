package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		u := mustUser(t, db, "Ann", "ann@example.com")
		assert.NotZero(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		got, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", got.Name)
		assert.Equal(t, "ann@example.com", got.Email)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Name: "Other", Email: "ann@example.com"})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := db.GetUserByID(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("GetAll", func(t *testing.T) {
		mustUser(t, db, "Bob", "bob@example.com")
		users, err := db.GetAllUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Ann", users[0].Name)
		assert.Equal(t, "Bob", users[1].Name)
	})

	t.Run("Update", func(t *testing.T) {
		u := mustUser(t, db, "Carl", "carl@example.com")
		u.Name = "Karl"
		u.Email = "karl@example.com"
		require.NoError(t, db.UpdateUser(ctx, u))

		got, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Karl", got.Name)
		assert.Equal(t, "karl@example.com", got.Email)

		u.Email = "ann@example.com"
		assert.ErrorIs(t, db.UpdateUser(ctx, u), domain.ErrEmailTaken)

		assert.ErrorIs(t, db.UpdateUser(ctx, &models.User{ID: 9999, Name: "x", Email: "x@example.com"}), domain.ErrUserNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("Unreferenced", func(t *testing.T) {
		u := mustUser(t, db, "Ann", "ann@example.com")
		require.NoError(t, db.DeleteUser(ctx, u.ID))
		_, err := db.GetUserByID(ctx, u.ID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		// the freed email can be registered again
		mustUser(t, db, "Ann", "ann@example.com")
	})

	t.Run("OwnsItems", func(t *testing.T) {
		owner := mustUser(t, db, "Owner", "owner@example.com")
		mustItem(t, db, owner.ID, "Drill")
		assert.ErrorIs(t, db.DeleteUser(ctx, owner.ID), domain.ErrUserInUse)
	})

	t.Run("NotFound", func(t *testing.T) {
		assert.ErrorIs(t, db.DeleteUser(ctx, 9999), domain.ErrUserNotFound)
	})
}
