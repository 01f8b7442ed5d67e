// Package leaderboard ranks catalogue snapshots and caches the results.
package leaderboard

import (
	"strconv"
	"strings"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/ranking"
)

// Filter narrows a leaderboard. Zero values match everything; Limit 0 means
// no limit.
type Filter struct {
	Category *domain.Category
	Genre    string
	Query    string
	Limit    int
}

// Predicate composes the filter criteria. Genre and Query match
// case-insensitive substrings; Query looks at name, genre and description.
func (f Filter) Predicate() ranking.Predicate {
	genre := strings.ToLower(strings.TrimSpace(f.Genre))
	query := strings.ToLower(strings.TrimSpace(f.Query))
	category := f.Category

	if category == nil && genre == "" && query == "" {
		return nil
	}
	return func(item domain.MediaItem) bool {
		if category != nil && item.Category != *category {
			return false
		}
		if genre != "" && !strings.Contains(strings.ToLower(item.Genre), genre) {
			return false
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.Genre), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) {
			return false
		}
		return true
	}
}

// key is the cache key for the filter.
func (f Filter) key() string {
	var b strings.Builder
	b.WriteString("c=")
	if f.Category != nil {
		b.WriteString(string(*f.Category))
	}
	b.WriteString("|g=")
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Genre)))
	b.WriteString("|q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Query)))
	b.WriteString("|l=")
	b.WriteString(strconv.Itoa(f.Limit))
	return b.String()
}
