package models

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	ItemName  string        `json:"item_name"`
	OwnerID   int64         `json:"owner_id"`
	BookerID  int64         `json:"booker_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Overlaps reports whether b intersects the half-open window [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.End.After(start) && b.Start.Before(end)
}

// BookingState is a listing filter; it is never stored.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

var bookingStates = map[string]BookingState{
	string(StateAll):      StateAll,
	string(StateCurrent):  StateCurrent,
	string(StatePast):     StatePast,
	string(StateFuture):   StateFuture,
	string(StateWaiting):  StateWaiting,
	string(StateRejected): StateRejected,
}

// ParseBookingState resolves a query token. An empty token means ALL.
func ParseBookingState(raw string) (BookingState, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StateAll, true
	}
	state, ok := bookingStates[strings.ToUpper(raw)]
	return state, ok
}

// BookingRole selects whose bookings a listing returns.
type BookingRole string

const (
	RoleRenter BookingRole = "renter"
	RoleOwner  BookingRole = "owner"
)

// Page is an offset window: From is the number of rows to skip, Size the page length.
type Page struct {
	From int `json:"from"`
	Size int `json:"size"`
}

func (p Page) Valid() bool {
	return p.From >= 0 && p.Size >= 1
}

// BookingFilter is the store-level form of a listing query.
// Zero-valued fields do not constrain the result.
type BookingFilter struct {
	Role        BookingRole
	UserID      int64
	Status      BookingStatus
	StartAtMost *time.Time
	StartAfter  *time.Time
	EndAfter    *time.Time
	EndBefore   *time.Time
}
