package controller

import (
	"context"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Notifications owns the bell menu. Rows are created by backend triggers;
// the only client mutations are marking them read.
type Notifications struct {
	List   *sync.Controller[models.Notification]
	selfID string
}

// NewNotifications wires the notification controller for the signed-in
// user.
func NewNotifications(records *platform.RecordsClient, selfID string) *Notifications {
	n := &Notifications{selfID: selfID}
	n.List = sync.New[models.Notification](
		&tableStore[models.Notification]{
			records: records,
			table:   "notifications",
			orderBy: "timestamp",
			buildFilters: func(f sync.Filter) []platform.Filter {
				return []platform.Filter{platform.Eq("user_id", f["user"])}
			},
		},
		sync.Options[models.Notification]{Table: "notifications"},
	)
	return n
}

// Load fetches the current user's notifications, newest first.
func (n *Notifications) Load(ctx context.Context) error {
	return n.List.Load(ctx, sync.Filter{"user": n.selfID})
}

// UnreadCount counts loaded unread notifications.
func (n *Notifications) UnreadCount() int {
	count := 0
	for _, row := range n.List.Values() {
		if !row.IsRead {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read.
func (n *Notifications) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	return n.List.Update(ctx, id, map[string]any{"is_read": true}, func(row models.Notification) models.Notification {
		row.IsRead = true
		return row
	})
}

// MarkAllRead flags every loaded unread notification. Best effort: the
// first failure is returned but remaining rows are still attempted.
func (n *Notifications) MarkAllRead(ctx context.Context) error {
	var firstErr error
	for _, row := range n.List.Values() {
		if row.IsRead {
			continue
		}
		if _, err := n.MarkRead(ctx, row.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dismiss deletes one notification.
func (n *Notifications) Dismiss(ctx context.Context, id string) error {
	return n.List.Delete(ctx, id)
}

// Close releases the controller.
func (n *Notifications) Close() { n.List.Close() }

// Listener binds the bell to the change feed, scoped to the current
// user's rows.
func (n *Notifications) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "notifications", func(id *models.Identity) string {
		return "user_id=eq." + id.ID
	}, n.List)
}
