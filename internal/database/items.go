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

const itemColumns = `id, owner_id, name, description, available, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, description, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		item.OwnerID,
		item.Name,
		item.Description,
		item.Available,
		toUnix(now),
		toUnix(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, item.Name, item.Description, item.Available, toUnix(now), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, ownerID, page.Size, page.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner items: %w", err)
	}
	return collectItems(rows)
}

// SearchItems matches available items whose name or description contains text.
// Matching is case-insensitive for ASCII letters (sqlite LIKE semantics).
func (db *DB) SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	pattern := "%" + escapeLike(text) + "%"
	query := `SELECT ` + itemColumns + ` FROM items
              WHERE available = 1
                AND (name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
              ORDER BY id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, pattern, pattern, page.Size, page.From)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return collectItems(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item             models.Item
		created, updated int64
	)
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.Available, &created, &updated)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = fromUnix(created)
	item.UpdatedAt = fromUnix(updated)
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]*models.Item, error) {
	defer rows.Close()

	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
