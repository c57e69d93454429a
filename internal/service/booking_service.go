package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// applyState narrows a listing filter to one BookingState relative to now.
type applyState func(now time.Time, f *models.BookingFilter)

var statePredicates = map[models.BookingState]applyState{
	models.StateAll: func(time.Time, *models.BookingFilter) {},
	models.StateCurrent: func(now time.Time, f *models.BookingFilter) {
		f.StartAtMost = &now
		f.EndAfter = &now
	},
	models.StatePast: func(now time.Time, f *models.BookingFilter) {
		f.EndBefore = &now
	},
	models.StateFuture: func(now time.Time, f *models.BookingFilter) {
		f.StartAfter = &now
	},
	models.StateWaiting: func(_ time.Time, f *models.BookingFilter) {
		f.Status = models.StatusWaiting
	},
	models.StateRejected: func(_ time.Time, f *models.BookingFilter) {
		f.Status = models.StatusRejected
	},
}

type BookingService struct {
	repo     domain.Repository
	quota    domain.RateLimitRepository
	eventBus domain.EventPublisher
	cfg      config.BookingConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewBookingService builds the booking engine. quota and eventBus may be nil.
func NewBookingService(
	repo domain.Repository,
	quota domain.RateLimitRepository,
	eventBus domain.EventPublisher,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		quota:    quota,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create stores a WAITING booking of itemID for requesterID.
func (s *BookingService) Create(ctx context.Context, requesterID, itemID int64, start, end time.Time) (*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, domain.ErrNotAvailable
	}

	if !start.Before(end) {
		return nil, domain.ErrInvalidInterval
	}

	if item.OwnerID == requesterID {
		return nil, domain.ErrSelfBookingForbidden
	}

	overlap, err := s.repo.HasApprovedOverlap(ctx, itemID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("%w in requested window", domain.ErrNotAvailable)
	}

	booking := &models.Booking{
		ItemID:   item.ID,
		ItemName: item.Name,
		OwnerID:  item.OwnerID,
		BookerID: requesterID,
		Start:    start,
		End:      end,
	}
	admit := func(ctx context.Context) error {
		return s.checkQuota(ctx, requesterID)
	}
	if err := s.repo.CreateBooking(ctx, booking, admit); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", booking.ItemID).
		Int64("booker_id", requesterID).
		Msg("Booking created")
	metrics.IncBookingTransition(string(models.StatusWaiting))
	s.publishEvent(events.EventBookingCreated, booking, requesterID)

	return booking, nil
}

func (s *BookingService) checkQuota(ctx context.Context, userID int64) error {
	if s.quota == nil || s.cfg.RequestLimit <= 0 {
		return nil
	}
	allowed, err := s.quota.CheckRateLimit(ctx, userID, s.cfg.RequestLimit, s.cfg.Window())
	if err != nil {
		// квота не должна блокировать бронирование при сбое хранилища
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Booking quota check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

// Decide approves or rejects a WAITING booking. Only the item owner may decide.
func (s *BookingService) Decide(ctx context.Context, ownerID, bookingID int64, approve bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, domain.ErrBookingNotFound
	}
	if booking.Status != models.StatusWaiting {
		return nil, domain.ErrInvalidStateTransition
	}

	status := models.StatusRejected
	eventType := events.EventBookingRejected
	if approve {
		status = models.StatusApproved
		eventType = events.EventBookingApproved
	}

	decided, err := s.repo.DecideBooking(ctx, bookingID, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", decided.ID).
		Int64("owner_id", ownerID).
		Str("status", string(decided.Status)).
		Msg("Booking decided")
	metrics.IncBookingTransition(string(decided.Status))
	s.publishEvent(eventType, decided, ownerID)

	return decided, nil
}

// Get returns the booking if requesterID is its booker or the item owner.
func (s *BookingService) Get(ctx context.Context, requesterID, bookingID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != requesterID && booking.OwnerID != requesterID {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *BookingService) ListForRenter(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error) {
	return s.list(ctx, models.RoleRenter, userID, state, page)
}

func (s *BookingService) ListForOwner(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error) {
	return s.list(ctx, models.RoleOwner, userID, state, page)
}

func (s *BookingService) list(ctx context.Context, role models.BookingRole, userID int64, rawState string, page models.Page) ([]*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if !page.Valid() {
		return nil, domain.ErrInvalidPage
	}

	state, ok := models.ParseBookingState(rawState)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedState, rawState)
	}

	filter := models.BookingFilter{Role: role, UserID: userID}
	statePredicates[state](s.now().UTC(), &filter)

	return s.repo.ListBookings(ctx, filter, page)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		OwnerID:   booking.OwnerID,
		BookerID:  booking.BookerID,
		Start:     booking.Start,
		End:       booking.End,
		Status:    string(booking.Status),
		ChangedBy: changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
