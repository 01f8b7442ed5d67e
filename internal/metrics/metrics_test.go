package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/items", http.StatusOK, 12*time.Millisecond)
	VoteActions.WithLabelValues("like", "like").Inc()
	LeaderboardCacheResults.WithLabelValues("miss").Inc()
	MetadataLookups.WithLabelValues("ok").Inc()
	LeaderboardComputeDuration.Observe(0.002)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"cinerank_http_request_duration_seconds",
		"cinerank_vote_actions_total",
		"cinerank_leaderboard_cache_total",
		"cinerank_metadata_lookups_total",
		"cinerank_leaderboard_compute_duration_seconds",
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
