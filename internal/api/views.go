package api

import (
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

// Accepted request timestamp layouts. Zone-less values are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

type userView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email}
}

type refView struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type bookingView struct {
	ID     int64     `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
	Booker refView   `json:"booker"`
	Item   refView   `json:"item"`
}

func newBookingView(b *models.Booking) bookingView {
	return bookingView{
		ID:     b.ID,
		Start:  b.Start.UTC(),
		End:    b.End.UTC(),
		Status: string(b.Status),
		Booker: refView{ID: b.BookerID},
		Item:   refView{ID: b.ItemID, Name: b.ItemName},
	}
}

func newBookingViews(bookings []*models.Booking) []bookingView {
	out := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, newBookingView(b))
	}
	return out
}

// shortBookingView is the booking summary attached to an owner's item.
type shortBookingView struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"bookerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

func newShortBookingView(b *models.Booking) *shortBookingView {
	if b == nil {
		return nil
	}
	return &shortBookingView{ID: b.ID, BookerID: b.BookerID, Start: b.Start.UTC(), End: b.End.UTC()}
}

type commentView struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	Created    time.Time `json:"created"`
}

func newCommentView(c *models.Comment) commentView {
	return commentView{ID: c.ID, Text: c.Text, AuthorName: c.AuthorName, Created: c.Created.UTC()}
}

type itemView struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Available   bool              `json:"available"`
	LastBooking *shortBookingView `json:"lastBooking"`
	NextBooking *shortBookingView `json:"nextBooking"`
	Comments    []commentView     `json:"comments"`
}

func newItemView(v *models.ItemView) itemView {
	comments := make([]commentView, 0, len(v.Comments))
	for i := range v.Comments {
		comments = append(comments, newCommentView(&v.Comments[i]))
	}
	return itemView{
		ID:          v.Item.ID,
		Name:        v.Item.Name,
		Description: v.Item.Description,
		Available:   v.Item.Available,
		LastBooking: newShortBookingView(v.LastBooking),
		NextBooking: newShortBookingView(v.NextBooking),
		Comments:    comments,
	}
}

type plainItemView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

func newPlainItemView(it *models.Item) plainItemView {
	return plainItemView{ID: it.ID, Name: it.Name, Description: it.Description, Available: it.Available}
}
