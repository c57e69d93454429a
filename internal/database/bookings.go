package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.item_id, i.name, i.owner_id, b.booker_id,
                 b.start_at, b.end_at, b.status, b.created_at, b.updated_at
              FROM bookings b JOIN items i ON i.id = b.item_id`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// HasApprovedOverlap reports whether an approved booking of the item intersects [start, end).
// Touching endpoints do not overlap.
func (db *DB) HasApprovedOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error) {
	return hasApprovedOverlap(ctx, db, itemID, start, end, 0)
}

func hasApprovedOverlap(ctx context.Context, q querier, itemID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM bookings
                WHERE item_id = ? AND status = ? AND end_at > ? AND start_at < ? AND id != ?
              )`
	var exists bool
	err := q.QueryRowContext(ctx, query, itemID, models.StatusApproved, toUnix(start), toUnix(end), excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return exists, nil
}

// CreateBooking stores a new WAITING booking. The overlap check is repeated
// inside the write transaction so an approval that committed in between is seen.
// admit, when set, runs after that check and before the insert; its error aborts the insert.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking, admit func(context.Context) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		overlap, err := hasApprovedOverlap(ctx, tx, booking.ItemID, booking.Start, booking.End, 0)
		if err != nil {
			return err
		}
		if overlap {
			return fmt.Errorf("%w in requested window", domain.ErrNotAvailable)
		}
		if admit != nil {
			if err := admit(ctx); err != nil {
				return err
			}
		}

		query := `INSERT INTO bookings (item_id, booker_id, start_at, end_at, status, created_at, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?)`
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx, query,
			booking.ItemID,
			booking.BookerID,
			toUnix(booking.Start),
			toUnix(booking.End),
			models.StatusWaiting,
			toUnix(now),
			toUnix(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking in tx: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id in tx: %w", err)
		}
		booking.ID = id
		booking.Status = models.StatusWaiting
		booking.Start = fromUnix(toUnix(booking.Start))
		booking.End = fromUnix(toUnix(booking.End))
		booking.CreatedAt = now
		booking.UpdatedAt = now
		return nil
	})
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// DecideBooking moves a WAITING booking to status as a compare-and-set.
// Approval fails with ErrNotAvailable when another approved booking of the
// item already covers part of the window.
func (db *DB) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	var decided *models.Booking
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		booking, err := getBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking.Status != models.StatusWaiting {
			return domain.ErrInvalidStateTransition
		}

		if status == models.StatusApproved {
			overlap, err := hasApprovedOverlap(ctx, tx, booking.ItemID, booking.Start, booking.End, booking.ID)
			if err != nil {
				return err
			}
			if overlap {
				return fmt.Errorf("%w: window already taken by an approved booking", domain.ErrNotAvailable)
			}
		}

		now := time.Now().UTC()
		query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
		result, err := tx.ExecContext(ctx, query, status, toUnix(now), id, models.StatusWaiting)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return domain.ErrInvalidStateTransition
		}

		booking.Status = status
		booking.UpdatedAt = now
		decided = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// ListBookings returns one page of bookings matching filter,
// ordered by end descending with ties broken by id ascending.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter, page models.Page) ([]*models.Booking, error) {
	var (
		where []string
		args  []interface{}
	)

	switch filter.Role {
	case models.RoleOwner:
		where = append(where, "i.owner_id = ?")
	default:
		where = append(where, "b.booker_id = ?")
	}
	args = append(args, filter.UserID)

	if filter.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, filter.Status)
	}
	if filter.StartAtMost != nil {
		where = append(where, "b.start_at <= ?")
		args = append(args, toUnix(*filter.StartAtMost))
	}
	if filter.StartAfter != nil {
		where = append(where, "b.start_at > ?")
		args = append(args, toUnix(*filter.StartAfter))
	}
	if filter.EndAfter != nil {
		where = append(where, "b.end_at > ?")
		args = append(args, toUnix(*filter.EndAfter))
	}
	if filter.EndBefore != nil {
		where = append(where, "b.end_at < ?")
		args = append(args, toUnix(*filter.EndBefore))
	}

	query := bookingSelect + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY b.end_at DESC, b.id ASC LIMIT ? OFFSET ?`
	args = append(args, page.Size, page.From)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return collectBookings(rows)
}

// GetApprovedBookings returns approved bookings of the given items ordered by start.
func (db *DB) GetApprovedBookings(ctx context.Context, itemIDs []int64) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return []*models.Booking{}, nil
	}
	query := bookingSelect + ` WHERE b.status = ? AND b.item_id IN (` + inPlaceholders(len(itemIDs)) + `)
              ORDER BY b.start_at, b.id`
	args := append([]interface{}{models.StatusApproved}, int64Args(itemIDs)...)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved bookings: %w", err)
	}
	return collectBookings(rows)
}

// HasFinishedBooking reports whether the booker has an approved booking of the item that ended before now.
func (db *DB) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM bookings
                WHERE booker_id = ? AND item_id = ? AND status = ? AND end_at < ?
              )`
	var exists bool
	err := db.QueryRowContext(ctx, query, bookerID, itemID, models.StatusApproved, toUnix(now)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check finished bookings: %w", err)
	}
	return exists, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                            models.Booking
		start, end, created, updated int64
	)
	err := row.Scan(&b.ID, &b.ItemID, &b.ItemName, &b.OwnerID, &b.BookerID,
		&start, &end, &b.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	b.Start = fromUnix(start)
	b.End = fromUnix(end)
	b.CreatedAt = fromUnix(created)
	b.UpdatedAt = fromUnix(updated)
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
