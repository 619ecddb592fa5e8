package models

import "time"

// NotificationType enumerates the backend-triggered notification kinds.
type NotificationType string

const (
	NotifyMessage NotificationType = "message"
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifyReply   NotificationType = "reply"
	NotifyFollow  NotificationType = "follow"
	NotifyMention NotificationType = "mention"
	NotifySystem  NotificationType = "system"
)

// NotificationActor is the denormalized snapshot of whoever triggered the
// notification, captured at creation time.
type NotificationActor struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar,omitempty"`
}

// Notification rows are created by backend triggers and consumed
// read-only; the only client mutation is marking them read.
type Notification struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Type      NotificationType   `json:"type"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
	IsRead    bool               `json:"is_read"`
	ActionURL string             `json:"action_url,omitempty"`
	Actor     *NotificationActor `json:"actor,omitempty"`
}

func (n Notification) EntityID() string { return n.ID }
