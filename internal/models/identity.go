package models

import "time"

// Role levels mirror the remote profiles table.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

// Identity is the signed-in user's profile row. Created once at
// registration, mutated via profile update, never hard-deleted here.
type Identity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Department    string    `json:"department"`
	Position      string    `json:"position"`
	Skills        []string  `json:"skills"`
	Interests     []string  `json:"interests"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

func (i Identity) EntityID() string { return i.ID }

// IsAdmin reports whether the identity may moderate others' content.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
