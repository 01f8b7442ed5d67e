package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/store"
)

// VotesRepository stores like/dislike votes, one row per item and voter.
type VotesRepository struct {
	pool *pgxpool.Pool
}

// Toggle applies a like or dislike press and returns the voter's resulting vote.
// The item row is locked so concurrent presses by the same voter serialize.
func (r *VotesRepository) Toggle(ctx context.Context, itemID, voterID string, pressed domain.Vote) (domain.Vote, error) {
	uid, err := parseID(itemID)
	if err != nil {
		return domain.VoteNone, err
	}

	next := domain.VoteNone
	err = store.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM items WHERE id = $1 FOR UPDATE`, uid).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock item: %w", err)
		}

		current := domain.VoteNone
		var stored string
		err := tx.QueryRow(ctx, `SELECT vote FROM item_votes WHERE item_id = $1 AND voter_id = $2`, uid, voterID).Scan(&stored)
		switch {
		case err == nil:
			current = domain.Vote(stored)
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return fmt.Errorf("read vote: %w", err)
		}

		next = domain.ToggleVote(current, pressed)
		if next == domain.VoteNone {
			_, err = tx.Exec(ctx, `DELETE FROM item_votes WHERE item_id = $1 AND voter_id = $2`, uid, voterID)
			return err
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO item_votes (item_id, voter_id, vote)
            VALUES ($1,$2,$3)
            ON CONFLICT (item_id, voter_id)
            DO UPDATE SET vote = EXCLUDED.vote, updated_at = now()
        `, uid, voterID, string(next))
		return err
	})
	if err != nil {
		return domain.VoteNone, err
	}
	return next, nil
}

// Get returns the voter's current vote on an item.
func (r *VotesRepository) Get(ctx context.Context, itemID, voterID string) (domain.Vote, error) {
	uid, err := parseID(itemID)
	if err != nil {
		return domain.VoteNone, err
	}
	var stored string
	err = r.pool.QueryRow(ctx, `SELECT vote FROM item_votes WHERE item_id = $1 AND voter_id = $2`, uid, voterID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VoteNone, nil
		}
		return domain.VoteNone, err
	}
	return domain.Vote(stored), nil
}

// RatingsRepository stores star ratings, one per item and voter.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// Upsert records a star rating, overwriting any previous rating by the same
// voter, and reports whether the rating is new.
func (r *RatingsRepository) Upsert(ctx context.Context, itemID, voterID string, stars int) (bool, error) {
	if err := domain.ValidateStars(stars); err != nil {
		return false, err
	}
	uid, err := parseID(itemID)
	if err != nil {
		return false, err
	}

	const query = `
        INSERT INTO item_ratings (item_id, voter_id, stars)
        SELECT id, $2::text, $3::smallint FROM items WHERE id = $1
        ON CONFLICT (item_id, voter_id)
        DO UPDATE SET stars = EXCLUDED.stars, updated_at = now()
        RETURNING (xmax = 0) AS inserted
    `
	var inserted bool
	if err := r.pool.QueryRow(ctx, query, uid, voterID, stars).Scan(&inserted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return inserted, nil
}

// Get returns a voter's rating on an item.
func (r *RatingsRepository) Get(ctx context.Context, itemID, voterID string) (int, error) {
	uid, err := parseID(itemID)
	if err != nil {
		return 0, err
	}
	var stars int
	err = r.pool.QueryRow(ctx, `SELECT stars FROM item_ratings WHERE item_id = $1 AND voter_id = $2`, uid, voterID).Scan(&stars)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return stars, nil
}

// Delete removes a voter's rating.
func (r *RatingsRepository) Delete(ctx context.Context, itemID, voterID string) error {
	uid, err := parseID(itemID)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM item_ratings WHERE item_id = $1 AND voter_id = $2`, uid, voterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
