package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, failures uint32) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(Options{
		BaseURL:         srv.URL,
		APIKey:          "secret",
		Timeout:         time.Second,
		BreakerFailures: failures,
		BreakerCooldown: time.Minute,
		Logger:          logging.Nop(),
	})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestHTTPClient_LookupOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata" {
			t.Errorf("path = %s, want /metadata", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q", got)
		}
		if r.URL.Query().Get("name") != "Frieren" || r.URL.Query().Get("type") != "Anime" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genre":"Fantasy","imdbRating":8.9,"year":2023,"totalSeasons":2,
			"description":"An elf mage outlives her party.","runPeriod":"2023-Present",
			"streamingOptions":[{"platform":"Crunchyroll","url":"https://crunchyroll.example"}]}`))
	}, 3)

	details, err := client.Lookup(context.Background(), "Frieren", domain.CategoryAnime)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if details.Genre != "Fantasy" || details.Year != 2023 || details.RunPeriod != "2023-Present" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.TotalSeasons == nil || *details.TotalSeasons != 2 {
		t.Fatalf("total seasons = %v, want 2", details.TotalSeasons)
	}
	if details.RottenTomatoes != nil {
		t.Fatalf("anime should not carry rotten tomatoes")
	}
	if len(details.StreamingOptions) != 1 {
		t.Fatalf("streaming options = %+v", details.StreamingOptions)
	}
}

func TestHTTPClient_LookupNotFoundDoesNotTrip(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}, 1)

	for i := 0; i < 3; i++ {
		if _, err := client.Lookup(context.Background(), "Nope", domain.CategoryMovie); !errors.Is(err, ErrNotFound) {
			t.Fatalf("attempt %d err = %v, want ErrNotFound", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3 (breaker must stay closed)", calls.Load())
	}
}

func TestHTTPClient_BreakerOpensOnUpstreamFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	for i := 0; i < 2; i++ {
		if _, err := client.Lookup(context.Background(), "Dark", domain.CategorySeries); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("attempt %d err = %v, want ErrUnavailable", i, err)
		}
	}
	_, err := client.Lookup(context.Background(), "Dark", domain.CategorySeries)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("open breaker err = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (open breaker must short-circuit)", calls.Load())
	}
}

func TestHTTPClient_CanceledCallsDoNotTrip(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genre":"Thriller","year":2017}`))
	}, 1)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := client.Lookup(canceled, "Dark", domain.CategorySeries)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("attempt %d err = %v, want context.Canceled", i, err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Fatalf("attempt %d reported a canceled call as provider outage", i)
		}
	}

	details, err := client.Lookup(context.Background(), "Dark", domain.CategorySeries)
	if err != nil {
		t.Fatalf("Lookup after canceled calls: %v", err)
	}
	if details.Genre != "Thriller" || calls.Load() != 1 {
		t.Fatalf("details = %+v calls = %d, breaker should have stayed closed", details, calls.Load())
	}
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"genre":`))
	}, 3)

	_, err := client.Lookup(context.Background(), "Dark", domain.CategorySeries)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTPClient(Options{BaseURL: "metadata.local"}); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

// TestHTTPClientSmoke checks a live provider when METADATA_URL is set.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("METADATA_URL")
	if baseURL == "" {
		t.Skip("METADATA_URL not provided")
	}
	client, err := NewHTTPClient(Options{
		BaseURL: baseURL,
		APIKey:  os.Getenv("METADATA_API_KEY"),
		Timeout: 3 * time.Second,
		Logger:  logging.Nop(),
	})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	details, err := client.Lookup(ctx, "Inception", domain.CategoryMovie)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if details.Genre == "" || details.RottenTomatoes == nil {
		t.Fatalf("unexpected details payload: %+v", details)
	}
}
