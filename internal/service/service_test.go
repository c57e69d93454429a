package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func hoursFromNow(h int) time.Time {
	return testNow.Add(time.Duration(h) * time.Hour)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockQuota struct {
	mock.Mock
}

func (m *mockQuota) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

type testEnv struct {
	db       *database.DB
	bookings *BookingService
	items    *ItemService
	users    *UserService
	bus      *mockEventBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Maybe()

	bookings := NewBookingService(db, nil, bus, config.BookingConfig{}, &logger)
	bookings.now = func() time.Time { return testNow }
	items := NewItemService(db, &logger)
	items.now = func() time.Time { return testNow }

	return &testEnv{
		db:       db,
		bookings: bookings,
		items:    items,
		users:    NewUserService(db, &logger),
		bus:      bus,
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), name, name+"@example.com")
	require.NoError(t, err)
	return u
}

func (e *testEnv) item(t *testing.T, ownerID int64, name string) *models.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), ownerID, &models.Item{
		Name:        name,
		Description: name + " for rent",
		Available:   true,
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) booking(t *testing.T, bookerID, itemID int64, start, end time.Time, status models.BookingStatus) *models.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := e.bookings.Create(ctx, bookerID, itemID, start, end)
	require.NoError(t, err)
	if status == models.StatusWaiting {
		return b
	}
	decided, err := e.bookings.Decide(ctx, b.OwnerID, b.ID, status == models.StatusApproved)
	require.NoError(t, err)
	return decided
}
