package controller

import (
	"context"
	"fmt"
	"strings"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Chat owns one open conversation: either a direct thread with a partner
// or a group room. Messages append at the tail (chronological order) and
// are only ever deleted by their sender.
type Chat struct {
	Messages *sync.Controller[models.Message]
	selfID   string
}

// NewChat wires a conversation controller for the signed-in user.
func NewChat(records *platform.RecordsClient, selfID string) *Chat {
	c := &Chat{selfID: selfID}
	c.Messages = sync.New[models.Message](
		&tableStore[models.Message]{
			records:   records,
			table:     "messages",
			orderBy:   "created_at",
			ascending: true,
			buildFilters: func(f sync.Filter) []platform.Filter {
				if group, ok := f["group"]; ok && group != "" {
					return []platform.Filter{platform.Eq("group_id", group)}
				}
				if partner, ok := f["partner"]; ok && partner != "" {
					// Both directions of the direct thread.
					return []platform.Filter{platform.Or(fmt.Sprintf(
						"and(sender_id.eq.%s,receiver_id.eq.%s),and(sender_id.eq.%s,receiver_id.eq.%s)",
						f["self"], partner, partner, f["self"],
					))}
				}
				return nil
			},
		},
		sync.Options[models.Message]{
			Table: "messages",
			Validate: func(m models.Message) error {
				if strings.TrimSpace(m.Content) == "" && m.ImageURL == "" && len(m.Attachments) == 0 {
					return models.NewValidationError("A message needs text, an image or an attachment")
				}
				return nil
			},
		},
	)
	return c
}

// OpenDirect loads the two-way thread with partnerID.
func (c *Chat) OpenDirect(ctx context.Context, partnerID string) error {
	return c.Messages.Load(ctx, sync.Filter{"self": c.selfID, "partner": partnerID})
}

// OpenGroup loads the group room.
func (c *Chat) OpenGroup(ctx context.Context, groupID string) error {
	return c.Messages.Load(ctx, sync.Filter{"group": groupID})
}

// SendDirect appends a message to the open direct thread. The confirmed
// server row is what lands in the list.
func (c *Chat) SendDirect(ctx context.Context, partnerID, content, imageURL string) (models.Message, error) {
	return c.Messages.Create(ctx, models.Message{
		SenderID:   c.selfID,
		ReceiverID: &partnerID,
		Content:    content,
		ImageURL:   imageURL,
	})
}

// SendGroup appends a message to the open group room.
func (c *Chat) SendGroup(ctx context.Context, groupID, content, imageURL string) (models.Message, error) {
	return c.Messages.Create(ctx, models.Message{
		SenderID: c.selfID,
		GroupID:  &groupID,
		Content:  content,
		ImageURL: imageURL,
	})
}

// MarkRead flags every loaded unread message addressed to the current
// user. Read receipts are best effort: a failed patch is logged by the
// controller and corrected by the next fetch.
func (c *Chat) MarkRead(ctx context.Context) error {
	var firstErr error
	for _, m := range c.Messages.Values() {
		if m.IsRead || m.SenderID == c.selfID {
			continue
		}
		_, err := c.Messages.Update(ctx, m.ID, map[string]any{"is_read": true}, func(m models.Message) models.Message {
			m.IsRead = true
			return m
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeleteMessage removes one of the current user's own messages. Nobody,
// admins included, deletes someone else's chat message.
func (c *Chat) DeleteMessage(ctx context.Context, messageID string) error {
	for _, m := range c.Messages.Values() {
		if m.ID != messageID {
			continue
		}
		if m.SenderID != c.selfID {
			return models.NewUnauthorizedError("Only the sender can delete a message")
		}
		return c.Messages.Delete(ctx, messageID)
	}
	return models.NewNotFoundError("messages", messageID)
}

// Close releases the conversation.
func (c *Chat) Close() { c.Messages.Close() }

// Listener binds the conversation to the change feed, scoped to messages
// addressed to the current user so other people's threads do not trigger
// re-fetches.
func (c *Chat) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "messages", func(id *models.Identity) string {
		return "receiver_id=eq." + id.ID
	}, c.Messages)
}
