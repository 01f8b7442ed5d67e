package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCategory is returned when a category is not one of the supported media kinds.
var ErrInvalidCategory = errors.New("domain: invalid category")

// Category is the closed set of media kinds an item can belong to.
type Category string

const (
	CategoryMovie  Category = "Movie"
	CategorySeries Category = "Series"
	CategoryAnime  Category = "Anime"
)

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategorySeries, CategoryMovie, CategoryAnime}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range Categories() {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// StreamingOption points to a platform where the item can be watched.
type StreamingOption struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// MediaItem is a single ranked media entry.
type MediaItem struct {
	ID               string
	Name             string
	Category         Category
	Genre            string
	Year             int
	IMDbRating       float64
	RottenTomatoes   *string
	TotalSeasons     *int
	Description      string
	PosterURL        *string
	RunPeriod        string
	StreamingOptions []StreamingOption
	Interactions     Interactions
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
