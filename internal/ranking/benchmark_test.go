package ranking

import (
	"fmt"
	"testing"

	"github.com/Clark-Hu/cinerank/internal/domain"
)

func BenchmarkScore(b *testing.B) {
	in := domain.Interactions{
		LikedBy:     voters("u1", "u2", "u3", "u4"),
		DislikedBy:  voters("u5"),
		StarRatings: uniformRatings(25, 4),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Score(in)
	}
}

func BenchmarkRank(b *testing.B) {
	items := make([]domain.MediaItem, 500)
	for i := range items {
		items[i] = domain.MediaItem{
			ID:       fmt.Sprintf("item-%d", i),
			Category: domain.Categories()[i%3],
			Interactions: domain.Interactions{
				LikedBy:     voters(fmt.Sprintf("l%d", i%7), fmt.Sprintf("m%d", i%11)),
				StarRatings: uniformRatings(i%13, 1+i%5),
			},
		}
	}
	pred := func(it domain.MediaItem) bool { return it.Category == domain.CategorySeries }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(items, pred)
	}
}
