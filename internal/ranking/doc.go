// Package ranking computes the popularity score used to order the leaderboard.
//
// The score combines three signals taken from an item's interaction aggregate:
//
//   - a like score, the Laplace-smoothed share of likes among binary votes,
//     so a single like yields 66.67 rather than 100
//   - a rating score, the average star rating scaled to 0-100, which falls
//     back to the like score while nobody has rated the item
//   - a confidence factor totalVotes/(totalVotes+prior) that damps items
//     with little evidence
//
// With the default weights:
//
//	likeScore   = (likes+1) / (likes+dislikes+2) * 100
//	ratingScore = avg(stars) / 5 * 100            (likeScore if no ratings)
//	confidence  = total / (total + 5)
//	score       = round((0.6*ratingScore + 0.4*likeScore) * confidence)
//
// Items with no interactions score 0 and are treated as unranked by callers.
//
// Basic usage:
//
//	entries := ranking.Rank(items, func(it domain.MediaItem) bool {
//		return it.Category == domain.CategorySeries
//	})
//	for _, e := range entries {
//		fmt.Println(e.Rank, e.Item.Name, e.Score)
//	}
//
// Everything in this package is pure and safe for concurrent use.
package ranking
