package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Created.IsZero() {
		comment.Created = time.Now().UTC()
	}
	query := `INSERT INTO comments (item_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, comment.ItemID, comment.AuthorID, comment.Text, toUnix(comment.Created))
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetCommentsByItems returns comments grouped by item, oldest first.
func (db *DB) GetCommentsByItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error) {
	result := make(map[int64][]models.Comment, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	query := `SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created_at
              FROM comments c JOIN users u ON u.id = c.author_id
              WHERE c.item_id IN (` + inPlaceholders(len(itemIDs)) + `)
              ORDER BY c.created_at, c.id`
	rows, err := db.QueryContext(ctx, query, int64Args(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c       models.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Created = fromUnix(created)
		result[c.ItemID] = append(result[c.ItemID], c)
	}
	return result, rows.Err()
}
