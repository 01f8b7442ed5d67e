package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

// Predicate selects the items that take part in a ranking.
type Predicate func(domain.MediaItem) bool

// Entry is a ranked item. Rank is the 1-based position in the output.
type Entry struct {
	Item  domain.MediaItem
	Score int
	Rank  int
}

// Components exposes the intermediate values of a score.
type Components struct {
	Likes       int
	Dislikes    int
	RatingCount int
	TotalVotes  int
	LikeScore   float64
	RatingScore float64
	Confidence  float64
	Weighted    float64
	Score       int
}

// Engine scores and ranks items with a fixed set of weights.
type Engine struct {
	weights Weights
}

var defaultEngine = &Engine{weights: DefaultWeights()}

// New returns an engine using w, or the default weights when w is nil.
func New(w *Weights) (*Engine, error) {
	if w == nil {
		return defaultEngine, nil
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: *w}, nil
}

// Default returns the engine configured with DefaultWeights.
func Default() *Engine {
	return defaultEngine
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Breakdown computes the score of in along with its components.
func (e *Engine) Breakdown(in domain.Interactions) Components {
	c := Components{
		Likes:       in.Likes(),
		Dislikes:    in.Dislikes(),
		RatingCount: in.RatingCount(),
	}
	c.TotalVotes = c.Likes + c.Dislikes + c.RatingCount
	if c.TotalVotes == 0 {
		return c
	}

	c.LikeScore = float64(c.Likes+1) / float64(c.Likes+c.Dislikes+2) * 100

	if c.RatingCount > 0 {
		c.RatingScore = in.AverageRating() / e.weights.MaxStars * 100
	} else {
		c.RatingScore = c.LikeScore
	}

	total := float64(c.TotalVotes)
	c.Confidence = total / (total + e.weights.ConfidencePrior)
	c.Weighted = e.weights.Rating*c.RatingScore + e.weights.Like*c.LikeScore
	c.Score = int(math.Round(c.Weighted * c.Confidence))
	return c
}

// Score returns the 0-100 popularity score of in.
func (e *Engine) Score(in domain.Interactions) int {
	return e.Breakdown(in).Score
}

// Rank keeps the items matching pred and orders them by descending score.
// Items with equal scores keep their input order. A nil pred matches all items.
func (e *Engine) Rank(items []domain.MediaItem, pred Predicate) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if pred != nil && !pred(item) {
			continue
		}
		entries = append(entries, Entry{Item: item, Score: e.Score(item.Interactions)})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Score scores in with the default engine.
func Score(in domain.Interactions) int {
	return defaultEngine.Score(in)
}

// Rank ranks items with the default engine.
func Rank(items []domain.MediaItem, pred Predicate) []Entry {
	return defaultEngine.Rank(items, pred)
}
