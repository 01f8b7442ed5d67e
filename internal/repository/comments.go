package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

// CommentsRepository stores comments attached to items.
type CommentsRepository struct {
	pool *pgxpool.Pool
}

// CommentCreateParams captures the payload required to add a comment.
type CommentCreateParams struct {
	ItemID      string
	AuthorID    string
	AuthorName  string
	AuthorPhoto *string
	Text        string
}

// Add stores a comment and returns it.
func (r *CommentsRepository) Add(ctx context.Context, params CommentCreateParams) (domain.Comment, error) {
	uid, err := parseID(params.ItemID)
	if err != nil {
		return domain.Comment{}, err
	}

	const query = `
        INSERT INTO comments (id, item_id, author_id, author_name, author_photo, body)
        SELECT $1::uuid, id, $3::text, $4::text, $5::text, $6::text FROM items WHERE id = $2
        RETURNING id::text, item_id::text, author_id, author_name, author_photo, body, created_at
    `
	comment, err := scanComment(r.pool.QueryRow(ctx, query,
		uuid.New(), uid, params.AuthorID, params.AuthorName, params.AuthorPhoto, params.Text))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}
	return comment, nil
}

// ListByItem returns an item's comments, oldest first.
func (r *CommentsRepository) ListByItem(ctx context.Context, itemID string) ([]domain.Comment, error) {
	uid, err := parseID(itemID)
	if err != nil {
		return nil, err
	}

	const query = `
        SELECT id::text, item_id::text, author_id, author_name, author_photo, body, created_at
        FROM comments
        WHERE item_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.pool.Query(ctx, query, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.AuthorPhoto, &c.Text, &c.CreatedAt)
	return c, err
}
