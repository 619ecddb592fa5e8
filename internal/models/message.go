package models

import "time"

// Message is a chat entry. Exactly one of ReceiverID (direct) or GroupID
// (group) is set. Append-only from the client's perspective except for
// explicit delete-by-sender.
type Message struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"sender_id"`
	ReceiverID  *string      `json:"receiver_id"`
	GroupID     *string      `json:"group_id"`
	Content     string       `json:"content"`
	ImageURL    string       `json:"image_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	IsRead      bool         `json:"is_read"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (m Message) EntityID() string { return m.ID }

// IsGroup reports whether the message belongs to a group conversation.
func (m Message) IsGroup() bool { return m.GroupID != nil }
