package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrNotAvailable           = errors.New("item unavailable")
	ErrInvalidInterval        = errors.New("booking start must be before end")
	ErrSelfBookingForbidden   = errors.New("owner cannot book own item")
	ErrInvalidStateTransition = errors.New("booking status already decided")
	ErrUnsupportedState       = errors.New("unknown state")
	ErrInvalidPage            = errors.New("invalid page parameters")

	ErrEmailTaken        = errors.New("email already registered")
	ErrUserInUse         = errors.New("user is referenced by other records")
	ErrCommentNotAllowed = errors.New("comment requires a completed booking of the item")
	ErrValidation        = errors.New("validation failed")

	// ErrRateLimited is returned when a user exceeds the booking request quota.
	ErrRateLimited = errors.New("too many booking requests")
)
