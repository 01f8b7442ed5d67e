package ranking

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("ranking: invalid weights")

// Weights tunes the score formula.
type Weights struct {
	Rating          float64 // share of the rating score (default: 0.6)
	Like            float64 // share of the like score (default: 0.4)
	ConfidencePrior float64 // pseudo-votes in the confidence denominator (default: 5)
	MaxStars        float64 // star value mapped to 100 (default: 5)
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Rating:          0.6,
		Like:            0.4,
		ConfidencePrior: 5,
		MaxStars:        5,
	}
}

// Validate checks that the weights keep every score inside [0,100].
func (w Weights) Validate() error {
	if w.Rating < 0 || w.Like < 0 {
		return fmt.Errorf("%w: shares must be non-negative (rating=%v, like=%v)", ErrInvalidWeights, w.Rating, w.Like)
	}
	if math.Abs(w.Rating+w.Like-1) > 1e-9 {
		return fmt.Errorf("%w: rating and like shares must sum to 1 (got %v)", ErrInvalidWeights, w.Rating+w.Like)
	}
	if w.ConfidencePrior <= 0 {
		return fmt.Errorf("%w: confidence prior must be positive", ErrInvalidWeights)
	}
	if w.MaxStars <= 0 {
		return fmt.Errorf("%w: max stars must be positive", ErrInvalidWeights)
	}
	return nil
}
