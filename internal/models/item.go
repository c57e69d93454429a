package models

import "time"

type Item struct {
	ID          int64     `yaml:"id" json:"id"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Available   bool      `yaml:"available" json:"available"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// ItemPatch carries a partial item update; nil fields are left untouched.
type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

type Comment struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	Created    time.Time `json:"created"`
}

// ItemBookings holds the approved bookings around "now" for one item.
type ItemBookings struct {
	Last *Booking
	Next *Booking
}

// ItemView is an item as presented to a viewer. Bookings are only set for the owner.
type ItemView struct {
	Item        Item
	LastBooking *Booking
	NextBooking *Booking
	Comments    []Comment
}
