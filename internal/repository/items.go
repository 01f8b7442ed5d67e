package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

// ItemsRepository provides persistence helpers for media items.
type ItemsRepository struct {
	pool *pgxpool.Pool
}

const itemColumns = `
    id::text,
    name,
    category,
    genre,
    release_year,
    imdb_rating,
    rotten_tomatoes,
    total_seasons,
    description,
    poster_url,
    run_period,
    streaming_options,
    created_at,
    updated_at
`

// ItemDetails are the descriptive fields filled from the metadata provider.
type ItemDetails struct {
	Genre            string
	Year             int
	IMDbRating       float64
	RottenTomatoes   *string
	TotalSeasons     *int
	Description      string
	PosterURL        *string
	RunPeriod        string
	StreamingOptions []domain.StreamingOption
}

// ItemCreateParams bundles the fields required to create an item.
type ItemCreateParams struct {
	Name     string
	Category domain.Category
	ItemDetails
}

// ItemListFilters narrows List and Snapshot. A nil Category selects all items.
type ItemListFilters struct {
	Category *domain.Category
}

// Create inserts a new item and returns the stored entity.
func (r *ItemsRepository) Create(ctx context.Context, params ItemCreateParams) (domain.MediaItem, error) {
	streaming, err := marshalStreaming(params.StreamingOptions)
	if err != nil {
		return domain.MediaItem{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO items (id, name, category, genre, release_year, imdb_rating, rotten_tomatoes,
                           total_seasons, description, poster_url, run_period, streaming_options)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING %s
    `, itemColumns)

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), params.Name, string(params.Category), params.Genre, params.Year, params.IMDbRating,
		params.RottenTomatoes, params.TotalSeasons, params.Description, params.PosterURL,
		params.RunPeriod, streaming)
	return scanItem(row)
}

// GetByID fetches an item by its identifier. Interactions are left empty.
func (r *ItemsRepository) GetByID(ctx context.Context, id string) (domain.MediaItem, error) {
	return getItem(ctx, r.pool, id)
}

func getItem(ctx context.Context, q querier, id string) (domain.MediaItem, error) {
	uid, err := parseID(id)
	if err != nil {
		return domain.MediaItem{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM items WHERE id = $1`, itemColumns)
	item, err := scanItem(q.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MediaItem{}, ErrNotFound
		}
		return domain.MediaItem{}, err
	}
	return item, nil
}

// List returns items in creation order.
func (r *ItemsRepository) List(ctx context.Context, filters ItemListFilters) ([]domain.MediaItem, error) {
	return listItems(ctx, r.pool, filters)
}

func listItems(ctx context.Context, q querier, filters ItemListFilters) ([]domain.MediaItem, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM items
        WHERE ($1::text IS NULL OR category = $1)
        ORDER BY created_at ASC, id ASC
    `, itemColumns)

	rows, err := q.Query(ctx, query, categoryArg(filters.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MediaItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateDetails replaces the descriptive fields of an item.
func (r *ItemsRepository) UpdateDetails(ctx context.Context, id string, details ItemDetails) (domain.MediaItem, error) {
	uid, err := parseID(id)
	if err != nil {
		return domain.MediaItem{}, err
	}
	streaming, err := marshalStreaming(details.StreamingOptions)
	if err != nil {
		return domain.MediaItem{}, err
	}

	query := fmt.Sprintf(`
        UPDATE items
        SET genre = $2,
            release_year = $3,
            imdb_rating = $4,
            rotten_tomatoes = COALESCE($5, rotten_tomatoes),
            total_seasons = COALESCE($6, total_seasons),
            description = $7,
            poster_url = COALESCE($8, poster_url),
            run_period = $9,
            streaming_options = $10,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, itemColumns)

	item, err := scanItem(r.pool.QueryRow(ctx, query,
		uid, details.Genre, details.Year, details.IMDbRating, details.RottenTomatoes, details.TotalSeasons,
		details.Description, details.PosterURL, details.RunPeriod, streaming))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MediaItem{}, ErrNotFound
		}
		return domain.MediaItem{}, err
	}
	return item, nil
}

// Delete removes an item together with its votes, ratings and comments.
func (r *ItemsRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (domain.MediaItem, error) {
	var (
		item          domain.MediaItem
		category      string
		streamingJSON []byte
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&item.ID,
		&item.Name,
		&category,
		&item.Genre,
		&item.Year,
		&item.IMDbRating,
		&item.RottenTomatoes,
		&item.TotalSeasons,
		&item.Description,
		&item.PosterURL,
		&item.RunPeriod,
		&streamingJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.MediaItem{}, err
	}

	item.Category = domain.Category(category)
	item.CreatedAt = createdAt
	item.UpdatedAt = updatedAt
	item.StreamingOptions = []domain.StreamingOption{}
	if len(streamingJSON) > 0 {
		if err := json.Unmarshal(streamingJSON, &item.StreamingOptions); err != nil {
			return domain.MediaItem{}, fmt.Errorf("decode streaming options: %w", err)
		}
	}
	return item, nil
}

func marshalStreaming(options []domain.StreamingOption) ([]byte, error) {
	if options == nil {
		options = []domain.StreamingOption{}
	}
	payload, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode streaming options: %w", err)
	}
	return payload, nil
}

func categoryArg(c *domain.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}
