package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/store"
)

// Snapshot returns the items matching filters with their interaction
// aggregates populated, in creation order. Items, votes and ratings are read
// from one transaction snapshot.
func (r *ItemsRepository) Snapshot(ctx context.Context, filters ItemListFilters) ([]domain.MediaItem, error) {
	var items []domain.MediaItem
	err := store.InReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		items, err = listItems(ctx, tx, filters)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		byID := make(map[string]*domain.Interactions, len(items))
		for i := range items {
			items[i].Interactions = domain.NewInteractions()
			byID[items[i].ID] = &items[i].Interactions
		}

		category := categoryArg(filters.Category)
		err = loadVotes(ctx, tx, byID, `
            SELECT v.item_id::text, v.voter_id, v.vote
            FROM item_votes v
            JOIN items i ON i.id = v.item_id
            WHERE ($1::text IS NULL OR i.category = $1)
        `, category)
		if err != nil {
			return err
		}
		return loadRatings(ctx, tx, byID, `
            SELECT rt.item_id::text, rt.voter_id, rt.stars
            FROM item_ratings rt
            JOIN items i ON i.id = rt.item_id
            WHERE ($1::text IS NULL OR i.category = $1)
        `, category)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetWithInteractions fetches one item with its interaction aggregate.
func (r *ItemsRepository) GetWithInteractions(ctx context.Context, id string) (domain.MediaItem, error) {
	var item domain.MediaItem
	err := store.InReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		item, err = getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		item.Interactions = domain.NewInteractions()
		byID := map[string]*domain.Interactions{item.ID: &item.Interactions}

		err = loadVotes(ctx, tx, byID, `
            SELECT item_id::text, voter_id, vote FROM item_votes WHERE item_id = $1::uuid
        `, item.ID)
		if err != nil {
			return err
		}
		return loadRatings(ctx, tx, byID, `
            SELECT item_id::text, voter_id, stars FROM item_ratings WHERE item_id = $1::uuid
        `, item.ID)
	})
	if err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}

func loadVotes(ctx context.Context, q querier, byID map[string]*domain.Interactions, query string, args ...any) error {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID, voter, vote string
		if err := rows.Scan(&itemID, &voter, &vote); err != nil {
			return fmt.Errorf("scan vote: %w", err)
		}
		in, ok := byID[itemID]
		if !ok {
			continue
		}
		switch domain.Vote(vote) {
		case domain.VoteLike:
			in.LikedBy[voter] = struct{}{}
		case domain.VoteDislike:
			in.DislikedBy[voter] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	return nil
}

func loadRatings(ctx context.Context, q querier, byID map[string]*domain.Interactions, query string, args ...any) error {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID, voter string
		var stars int
		if err := rows.Scan(&itemID, &voter, &stars); err != nil {
			return fmt.Errorf("scan rating: %w", err)
		}
		if in, ok := byID[itemID]; ok {
			in.StarRatings[voter] = stars
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	return nil
}
