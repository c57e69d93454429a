package service

import (
	"context"
	"strings"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestItemService_CreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	other := env.user(t, "other")

	t.Run("Create", func(t *testing.T) {
		item, err := env.items.CreateItem(ctx, owner.ID, &models.Item{Name: " Drill ", Description: "Cordless", Available: true})
		require.NoError(t, err)
		assert.NotZero(t, item.ID)
		assert.Equal(t, owner.ID, item.OwnerID)
		assert.Equal(t, "Drill", item.Name)
	})

	t.Run("CreateValidation", func(t *testing.T) {
		_, err := env.items.CreateItem(ctx, owner.ID, &models.Item{Name: "", Description: "x"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = env.items.CreateItem(ctx, owner.ID, &models.Item{Name: "x", Description: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = env.items.CreateItem(ctx, owner.ID, &models.Item{Name: strings.Repeat("x", 256), Description: "y"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("CreateUnknownOwner", func(t *testing.T) {
		_, err := env.items.CreateItem(ctx, 9999, &models.Item{Name: "x", Description: "y"})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		item := env.item(t, owner.ID, "Saw")
		updated, err := env.items.UpdateItem(ctx, owner.ID, item.ID, models.ItemPatch{
			Name:      ptr("Hand saw"),
			Available: ptr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, "Hand saw", updated.Name)
		assert.Equal(t, "Saw for rent", updated.Description)
		assert.False(t, updated.Available)

		// blank values are ignored
		updated, err = env.items.UpdateItem(ctx, owner.ID, item.ID, models.ItemPatch{Name: ptr("  ")})
		require.NoError(t, err)
		assert.Equal(t, "Hand saw", updated.Name)
	})

	t.Run("UpdateByStranger", func(t *testing.T) {
		item := env.item(t, owner.ID, "Ladder")
		_, err := env.items.UpdateItem(ctx, other.ID, item.ID, models.ItemPatch{Name: ptr("Mine")})
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})
}

func TestItemService_ViewsAndAggregation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	drill := env.item(t, owner.ID, "Drill")
	saw := env.item(t, owner.ID, "Saw")

	oldest := env.booking(t, booker.ID, drill.ID, hoursFromNow(-72), hoursFromNow(-60), models.StatusApproved)
	last := env.booking(t, booker.ID, drill.ID, hoursFromNow(-10), hoursFromNow(-5), models.StatusApproved)
	env.booking(t, booker.ID, drill.ID, hoursFromNow(-3), hoursFromNow(-2), models.StatusRejected)
	next := env.booking(t, booker.ID, drill.ID, hoursFromNow(5), hoursFromNow(6), models.StatusApproved)
	env.booking(t, booker.ID, drill.ID, hoursFromNow(2), hoursFromNow(3), models.StatusWaiting)
	env.booking(t, booker.ID, drill.ID, hoursFromNow(30), hoursFromNow(40), models.StatusApproved)
	_ = oldest

	comment, err := env.items.AddComment(ctx, booker.ID, drill.ID, "Works fine")
	require.NoError(t, err)

	t.Run("OwnerSeesBookings", func(t *testing.T) {
		view, err := env.items.GetItem(ctx, owner.ID, drill.ID)
		require.NoError(t, err)
		require.NotNil(t, view.LastBooking)
		require.NotNil(t, view.NextBooking)
		assert.Equal(t, last.ID, view.LastBooking.ID)
		assert.Equal(t, next.ID, view.NextBooking.ID)
		require.Len(t, view.Comments, 1)
		assert.Equal(t, comment.ID, view.Comments[0].ID)
		assert.Equal(t, "booker", view.Comments[0].AuthorName)
	})

	t.Run("OthersSeeOnlyComments", func(t *testing.T) {
		view, err := env.items.GetItem(ctx, booker.ID, drill.ID)
		require.NoError(t, err)
		assert.Nil(t, view.LastBooking)
		assert.Nil(t, view.NextBooking)
		assert.Len(t, view.Comments, 1)
	})

	t.Run("ListOwnItems", func(t *testing.T) {
		views, err := env.items.ListOwnItems(ctx, owner.ID, models.Page{Size: 10})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, drill.ID, views[0].Item.ID)
		assert.Equal(t, last.ID, views[0].LastBooking.ID)
		assert.Equal(t, saw.ID, views[1].Item.ID)
		assert.Nil(t, views[1].LastBooking)
		assert.Nil(t, views[1].NextBooking)
		assert.NotNil(t, views[1].Comments)
		assert.Empty(t, views[1].Comments)
	})

	t.Run("ListOwnItemsInvalidPage", func(t *testing.T) {
		_, err := env.items.ListOwnItems(ctx, owner.ID, models.Page{Size: 0})
		assert.ErrorIs(t, err, domain.ErrInvalidPage)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		_, err := env.items.GetItem(ctx, owner.ID, 9999)
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("UnknownViewer", func(t *testing.T) {
		_, err := env.items.GetItem(ctx, 9999, drill.ID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestNearestBookings(t *testing.T) {
	bookings := []*models.Booking{
		{ID: 1, ItemID: 1, Start: hoursFromNow(-5)},
		{ID: 2, ItemID: 1, Start: hoursFromNow(-1)},
		{ID: 3, ItemID: 1, Start: hoursFromNow(3)},
		{ID: 4, ItemID: 1, Start: hoursFromNow(1)},
		{ID: 5, ItemID: 2, Start: hoursFromNow(2)},
		{ID: 6, ItemID: 3, Start: testNow},
	}

	got := nearestBookings(bookings, testNow)

	assert.Equal(t, int64(2), got[1].Last.ID)
	assert.Equal(t, int64(4), got[1].Next.ID)
	assert.Nil(t, got[2].Last)
	assert.Equal(t, int64(5), got[2].Next.ID)
	// a booking starting exactly now is neither last nor next
	assert.Nil(t, got[3].Last)
	assert.Nil(t, got[3].Next)
}

func TestItemService_Search(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	env.item(t, owner.ID, "Drill")
	off := env.item(t, owner.ID, "Drill press")
	_, err := env.items.UpdateItem(ctx, owner.ID, off.ID, models.ItemPatch{Available: ptr(false)})
	require.NoError(t, err)

	items, err := env.items.Search(ctx, "drill", models.Page{Size: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Drill", items[0].Name)

	items, err = env.items.Search(ctx, "   ", models.Page{Size: 10})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = env.items.Search(ctx, "drill", models.Page{From: -1, Size: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidPage)
}

func TestItemService_AddComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	stranger := env.user(t, "stranger")
	drill := env.item(t, owner.ID, "Drill")

	env.booking(t, booker.ID, drill.ID, hoursFromNow(-10), hoursFromNow(-5), models.StatusApproved)
	env.booking(t, stranger.ID, drill.ID, hoursFromNow(-4), hoursFromNow(-3), models.StatusRejected)
	env.booking(t, stranger.ID, drill.ID, hoursFromNow(-2), hoursFromNow(2), models.StatusApproved)

	t.Run("Allowed", func(t *testing.T) {
		c, err := env.items.AddComment(ctx, booker.ID, drill.ID, "Good")
		require.NoError(t, err)
		assert.Equal(t, "booker", c.AuthorName)
		assert.True(t, c.Created.Equal(testNow))
	})

	t.Run("NoFinishedBooking", func(t *testing.T) {
		_, err := env.items.AddComment(ctx, stranger.ID, drill.ID, "Nice")
		assert.ErrorIs(t, err, domain.ErrCommentNotAllowed)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := env.items.AddComment(ctx, booker.ID, drill.ID, " ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("UnknownUserAndItem", func(t *testing.T) {
		_, err := env.items.AddComment(ctx, 9999, drill.ID, "x")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		_, err = env.items.AddComment(ctx, booker.ID, 9999, "x")
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})
}
