package domain

import "time"

// MaxCommentLength bounds the trimmed comment body.
const MaxCommentLength = 1000

// Comment is a user's note attached to an item.
type Comment struct {
	ID          string
	ItemID      string
	AuthorID    string
	AuthorName  string
	AuthorPhoto *string
	Text        string
	CreatedAt   time.Time
}
