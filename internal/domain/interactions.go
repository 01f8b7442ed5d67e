package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRating is returned for star ratings outside [MinStars, MaxStars].
var ErrInvalidRating = errors.New("domain: rating out of range")

const (
	MinStars = 1
	MaxStars = 5
)

// Vote is a voter's binary opinion on an item.
type Vote string

const (
	VoteNone    Vote = "none"
	VoteLike    Vote = "like"
	VoteDislike Vote = "dislike"
)

// ToggleVote returns the vote that results from pressing pressed while
// current is recorded. Pressing the same vote again clears it.
func ToggleVote(current, pressed Vote) Vote {
	if pressed == VoteNone || current == pressed {
		return VoteNone
	}
	return pressed
}

// ValidateStars checks a star rating against the allowed range.
func ValidateStars(stars int) error {
	if stars < MinStars || stars > MaxStars {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRating, stars, MinStars, MaxStars)
	}
	return nil
}

// Interactions is the vote and rating aggregate of one item. The zero value
// is an empty aggregate: nil maps read as empty.
type Interactions struct {
	LikedBy     map[string]struct{}
	DislikedBy  map[string]struct{}
	StarRatings map[string]int
}

// NewInteractions returns an empty aggregate ready for mutation.
func NewInteractions() Interactions {
	return Interactions{
		LikedBy:     make(map[string]struct{}),
		DislikedBy:  make(map[string]struct{}),
		StarRatings: make(map[string]int),
	}
}

// Likes returns the number of distinct voters who liked the item.
func (in Interactions) Likes() int { return len(in.LikedBy) }

// Dislikes returns the number of distinct voters who disliked the item.
func (in Interactions) Dislikes() int { return len(in.DislikedBy) }

// RatingCount returns the number of voters with a star rating.
func (in Interactions) RatingCount() int { return len(in.StarRatings) }

// AverageRating returns the mean star rating, or 0 when nobody rated.
func (in Interactions) AverageRating() float64 {
	if len(in.StarRatings) == 0 {
		return 0
	}
	sum := 0
	for _, v := range in.StarRatings {
		sum += v
	}
	return float64(sum) / float64(len(in.StarRatings))
}

// VoteOf reports the current binary vote of voter.
func (in Interactions) VoteOf(voter string) Vote {
	if _, ok := in.LikedBy[voter]; ok {
		return VoteLike
	}
	if _, ok := in.DislikedBy[voter]; ok {
		return VoteDislike
	}
	return VoteNone
}

// Toggle applies a like or dislike press for voter and returns the resulting vote.
// A voter is never present in both sets afterwards.
func (in *Interactions) Toggle(voter string, pressed Vote) Vote {
	in.ensure()
	next := ToggleVote(in.VoteOf(voter), pressed)
	delete(in.LikedBy, voter)
	delete(in.DislikedBy, voter)
	switch next {
	case VoteLike:
		in.LikedBy[voter] = struct{}{}
	case VoteDislike:
		in.DislikedBy[voter] = struct{}{}
	}
	return next
}

// Rate records the voter's star rating, replacing any previous one.
func (in *Interactions) Rate(voter string, stars int) error {
	if err := ValidateStars(stars); err != nil {
		return err
	}
	in.ensure()
	in.StarRatings[voter] = stars
	return nil
}

func (in *Interactions) ensure() {
	if in.LikedBy == nil {
		in.LikedBy = make(map[string]struct{})
	}
	if in.DislikedBy == nil {
		in.DislikedBy = make(map[string]struct{})
	}
	if in.StarRatings == nil {
		in.StarRatings = make(map[string]int)
	}
}
