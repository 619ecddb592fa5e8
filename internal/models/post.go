package models

import "time"

// Post is a timeline entry. Content is mutable by its author only; the
// like list is a membership set of user IDs with a denormalized count
// maintained server-side.
type Post struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	Content     string       `json:"content"`
	ImageURLs   []string     `json:"image_urls,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// LikeUserIDs is the like membership list; LikeCount is the
	// denormalized counter column and can transiently diverge from
	// len(LikeUserIDs) until the next fetch.
	LikeUserIDs []string  `json:"likes"`
	LikeCount   int       `json:"like_count"`
	Comments    []Comment `json:"comments,omitempty"`
	GroupID     *string   `json:"group_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Post) EntityID() string { return p.ID }

// LikedBy reports membership of userID in the like list.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.LikeUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
