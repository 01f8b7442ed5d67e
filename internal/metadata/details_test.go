package metadata

import (
	"testing"
	"time"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

var fixedNow = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestFallback(t *testing.T) {
	tests := []struct {
		name     string
		category domain.Category
		wantRT   bool
		wantDesc string
	}{
		{"Dune", domain.CategoryMovie, true, "A Movie named Dune."},
		{"Dark", domain.CategorySeries, true, "A Series named Dark."},
		{"Frieren", domain.CategoryAnime, false, "A Anime named Frieren."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Fallback(tt.name, tt.category, fixedNow)
			if d.Genre != "Unknown" || d.Year != 2025 || d.RunPeriod != "2025" || d.IMDbRating != 0 {
				t.Fatalf("unexpected defaults: %+v", d)
			}
			if d.Description != tt.wantDesc {
				t.Fatalf("description = %q, want %q", d.Description, tt.wantDesc)
			}
			if d.StreamingOptions == nil || len(d.StreamingOptions) != 0 {
				t.Fatalf("streaming options = %#v, want empty", d.StreamingOptions)
			}
			if tt.wantRT {
				if d.RottenTomatoes == nil || *d.RottenTomatoes != "N/A" || d.TotalSeasons != nil {
					t.Fatalf("rotten tomatoes = %v seasons = %v", d.RottenTomatoes, d.TotalSeasons)
				}
			} else if d.TotalSeasons == nil || *d.TotalSeasons != 1 || d.RottenTomatoes != nil {
				t.Fatalf("seasons = %v rotten tomatoes = %v", d.TotalSeasons, d.RottenTomatoes)
			}
		})
	}
}

func TestNormalize_RunPeriodFollowsYear(t *testing.T) {
	year := 1999
	d := normalize(apiResponse{Year: &year}, "One Piece", domain.CategoryAnime, fixedNow)
	if d.RunPeriod != "1999" {
		t.Fatalf("run period = %q, want 1999", d.RunPeriod)
	}
}

func TestNormalize_StreamingOptions(t *testing.T) {
	payload := apiResponse{StreamingOptions: []streamingPayload{
		{Platform: " Netflix ", URL: "https://netflix.example"},
		{Platform: "", URL: "https://empty.example"},
		{Platform: "Hulu"},
		{Platform: "Prime Video"},
		{Platform: "Disney+"},
	}}
	d := normalize(payload, "X", domain.CategoryMovie, fixedNow)
	if len(d.StreamingOptions) != maxStreamingPlatforms {
		t.Fatalf("len = %d, want %d", len(d.StreamingOptions), maxStreamingPlatforms)
	}
	if d.StreamingOptions[0].Platform != "Netflix" {
		t.Fatalf("platform not trimmed: %q", d.StreamingOptions[0].Platform)
	}
	if d.StreamingOptions[1].Platform != "Hulu" {
		t.Fatalf("blank platform not skipped: %+v", d.StreamingOptions)
	}
}

func FuzzNormalize(f *testing.F) {
	f.Add("Drama", 2020, 7.5, "90%", 3, "desc", "2020-2022", "Dark", uint8(0))
	f.Add("", 0, -1.0, "", 0, "", "", "", uint8(2))

	f.Fuzz(func(t *testing.T, genre string, year int, imdb float64, rt string, seasons int, desc, period, name string, cat uint8) {
		category := domain.Categories()[int(cat)%len(domain.Categories())]
		payload := apiResponse{
			Genre:          &genre,
			Year:           &year,
			IMDbRating:     &imdb,
			RottenTomatoes: &rt,
			TotalSeasons:   &seasons,
			Description:    &desc,
			RunPeriod:      &period,
		}
		d := normalize(payload, name, category, fixedNow)
		if d.Genre == "" || d.Description == "" || d.RunPeriod == "" {
			t.Fatalf("empty required field: %+v", d)
		}
		if d.Year <= 0 {
			t.Fatalf("year = %d", d.Year)
		}
		if d.IMDbRating < 0 || d.IMDbRating > 10 {
			t.Fatalf("imdb rating out of range: %v", d.IMDbRating)
		}
		if d.StreamingOptions == nil {
			t.Fatalf("streaming options nil")
		}
		if category == domain.CategoryAnime {
			if d.TotalSeasons == nil || *d.TotalSeasons < 1 {
				t.Fatalf("anime seasons = %v", d.TotalSeasons)
			}
		} else if d.RottenTomatoes == nil || *d.RottenTomatoes == "" {
			t.Fatalf("rotten tomatoes missing for %s", category)
		}
	})
}
