package models

import "time"

// Comment is a reply to a post, or to another comment when
// ParentCommentID is set. Nesting depth is unbounded in the model even
// though consumers typically render two levels.
type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	ParentCommentID *string   `json:"parent_comment_id,omitempty"`
	AuthorID        string    `json:"author_id"`
	Content         string    `json:"content"`
	LikeUserIDs     []string  `json:"likes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c Comment) EntityID() string { return c.ID }

// LikedBy reports membership of userID in the like list.
func (c Comment) LikedBy(userID string) bool {
	for _, id := range c.LikeUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
