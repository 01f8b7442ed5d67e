// Package metadata enriches new items with details from an external provider.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

const (
	unknownGenre          = "Unknown"
	notAvailable          = "N/A"
	defaultAnimeSeasons   = 1
	maxStreamingPlatforms = 3
)

// Details are the normalized descriptive fields of a title.
type Details struct {
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

type apiResponse struct {
	Genre            *string            `json:"genre"`
	IMDbRating       *float64           `json:"imdbRating"`
	Year             *int               `json:"year"`
	RottenTomatoes   *string            `json:"rottenTomatoes"`
	TotalSeasons     *int               `json:"totalSeasons"`
	Description      *string            `json:"description"`
	PosterURL        *string            `json:"posterUrl"`
	RunPeriod        *string            `json:"runPeriod"`
	StreamingOptions []streamingPayload `json:"streamingOptions"`
}

type streamingPayload struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Fallback returns the details used when the provider has nothing for a title.
func Fallback(name string, category domain.Category, now time.Time) Details {
	return normalize(apiResponse{}, name, category, now)
}

func normalize(payload apiResponse, name string, category domain.Category, now time.Time) Details {
	d := Details{
		Genre:            unknownGenre,
		Year:             now.Year(),
		Description:      fmt.Sprintf("A %s named %s.", category, name),
		StreamingOptions: []domain.StreamingOption{},
	}

	if s := trimmed(payload.Genre); s != "" {
		d.Genre = s
	}
	if payload.Year != nil && *payload.Year > 0 {
		d.Year = *payload.Year
	}
	if payload.IMDbRating != nil && *payload.IMDbRating > 0 && *payload.IMDbRating <= 10 {
		d.IMDbRating = *payload.IMDbRating
	}
	if s := trimmed(payload.Description); s != "" {
		d.Description = s
	}
	if s := trimmed(payload.PosterURL); s != "" {
		d.PosterURL = &s
	}
	d.RunPeriod = strconv.Itoa(d.Year)
	if s := trimmed(payload.RunPeriod); s != "" {
		d.RunPeriod = s
	}

	for _, opt := range payload.StreamingOptions {
		platform := strings.TrimSpace(opt.Platform)
		if platform == "" {
			continue
		}
		d.StreamingOptions = append(d.StreamingOptions, domain.StreamingOption{
			Platform: platform,
			URL:      strings.TrimSpace(opt.URL),
		})
		if len(d.StreamingOptions) == maxStreamingPlatforms {
			break
		}
	}

	if category == domain.CategoryAnime {
		seasons := defaultAnimeSeasons
		if payload.TotalSeasons != nil && *payload.TotalSeasons > 0 {
			seasons = *payload.TotalSeasons
		}
		d.TotalSeasons = &seasons
	} else {
		rt := notAvailable
		if s := trimmed(payload.RottenTomatoes); s != "" {
			rt = s
		}
		d.RottenTomatoes = &rt
	}
	return d
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
