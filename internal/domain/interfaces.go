package domain

import (
	"context"
	"time"

	"shareit/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking, admit func(context.Context) error) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	DecideBooking(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error)
	HasApprovedOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error)
	ListBookings(ctx context.Context, filter models.BookingFilter, page models.Page) ([]*models.Booking, error)
	GetApprovedBookings(ctx context.Context, itemIDs []int64) ([]*models.Booking, error)
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error)
}

// Repository is the full storage surface implemented by database.DB.
type Repository interface {
	UserRepository
	ItemRepository
	BookingRepository
	CommentRepository
}

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type BookingService interface {
	Create(ctx context.Context, requesterID, itemID int64, start, end time.Time) (*models.Booking, error)
	Decide(ctx context.Context, ownerID, bookingID int64, approve bool) (*models.Booking, error)
	Get(ctx context.Context, requesterID, bookingID int64) (*models.Booking, error)
	ListForRenter(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error)
	ListForOwner(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error)
	GetItem(ctx context.Context, viewerID, itemID int64) (*models.ItemView, error)
	ListOwnItems(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemView, error)
	Search(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
	AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error)
}

type UserService interface {
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
