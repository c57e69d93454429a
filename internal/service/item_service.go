package service

import (
	"context"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validation"

	"github.com/rs/zerolog"
)

type itemInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=2000"`
}

type commentInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type ItemService struct {
	repo   domain.Repository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewItemService(repo domain.Repository, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	in := itemInput{Name: strings.TrimSpace(item.Name), Description: strings.TrimSpace(item.Description)}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	item.Name = in.Name
	item.Description = in.Description

	item.ID = 0
	item.OwnerID = ownerID
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("Item created")
	return item, nil
}

// UpdateItem applies non-blank patch fields. Items of other owners are reported as not found.
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.ErrItemNotFound
	}

	in := itemInput{Name: item.Name, Description: item.Description}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		in.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		in.Description = strings.TrimSpace(*patch.Description)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	item.Name = in.Name
	item.Description = in.Description
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns the item with comments. Booking details are only filled for the owner.
func (s *ItemService) GetItem(ctx context.Context, viewerID, itemID int64) (*models.ItemView, error) {
	if _, err := s.repo.GetUserByID(ctx, viewerID); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.GetCommentsByItems(ctx, []int64{itemID})
	if err != nil {
		return nil, err
	}

	views, err := s.Annotate(ctx, viewerID, []*models.Item{item}, comments)
	if err != nil {
		return nil, err
	}
	view := views[item.ID]
	return &view, nil
}

// ListOwnItems returns one page of the owner's items ordered by id.
func (s *ItemService) ListOwnItems(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemView, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if !page.Valid() {
		return nil, domain.ErrInvalidPage
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	comments, err := s.repo.GetCommentsByItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	views, err := s.Annotate(ctx, ownerID, items, comments)
	if err != nil {
		return nil, err
	}

	result := make([]*models.ItemView, 0, len(items))
	for _, item := range items {
		view := views[item.ID]
		result = append(result, &view)
	}
	return result, nil
}

// Search returns available items matching text. Blank text matches nothing.
func (s *ItemService) Search(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	if !page.Valid() {
		return nil, domain.ErrInvalidPage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}
	return s.repo.SearchItems(ctx, text, page)
}

// AddComment stores a comment from a user who has finished an approved booking of the item.
func (s *ItemService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	in := commentInput{Text: strings.TrimSpace(text)}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	author, err := s.repo.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	finished, err := s.repo.HasFinishedBooking(ctx, authorID, itemID, now)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, domain.ErrCommentNotAllowed
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name,
		Text:       in.Text,
		Created:    now,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Annotate builds item views for viewerID. Last and next approved bookings are
// resolved only for items the viewer owns; comments are attached for everyone.
func (s *ItemService) Annotate(
	ctx context.Context,
	viewerID int64,
	items []*models.Item,
	comments map[int64][]models.Comment,
) (map[int64]models.ItemView, error) {
	views := make(map[int64]models.ItemView, len(items))
	var owned []int64
	for _, item := range items {
		itemComments := comments[item.ID]
		if itemComments == nil {
			itemComments = []models.Comment{}
		}
		views[item.ID] = models.ItemView{Item: *item, Comments: itemComments}
		if item.OwnerID == viewerID {
			owned = append(owned, item.ID)
		}
	}
	if len(owned) == 0 {
		return views, nil
	}

	approved, err := s.repo.GetApprovedBookings(ctx, owned)
	if err != nil {
		return nil, err
	}

	for itemID, nb := range nearestBookings(approved, s.now()) {
		view, ok := views[itemID]
		if !ok {
			continue
		}
		view.LastBooking = nb.Last
		view.NextBooking = nb.Next
		views[itemID] = view
	}
	return views, nil
}

// nearestBookings picks, per item, the booking with the greatest start before now
// and the one with the smallest start after now.
func nearestBookings(bookings []*models.Booking, now time.Time) map[int64]models.ItemBookings {
	result := make(map[int64]models.ItemBookings)
	for _, b := range bookings {
		nb := result[b.ItemID]
		switch {
		case b.Start.Before(now):
			if nb.Last == nil || b.Start.After(nb.Last.Start) {
				nb.Last = b
			}
		case b.Start.After(now):
			if nb.Next == nil || b.Start.Before(nb.Next.Start) {
				nb.Next = b
			}
		}
		result[b.ItemID] = nb
	}
	return result
}
