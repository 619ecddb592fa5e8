package controller

import (
	"context"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Attachments owns the file database browser: every uploaded file across
// posts and messages, searchable by name and filterable by category.
// Deleting a row here does not touch the owning post or message, and does
// not remove the stored object.
type Attachments struct {
	List *sync.Controller[models.Attachment]
}

// NewAttachments wires the browser controller.
func NewAttachments(records *platform.RecordsClient) *Attachments {
	a := &Attachments{}
	a.List = sync.New[models.Attachment](
		&tableStore[models.Attachment]{
			records: records,
			table:   "attachments",
			orderBy: "created_at",
			buildFilters: func(f sync.Filter) []platform.Filter {
				var out []platform.Filter
				if term, ok := f["search"]; ok && term != "" {
					out = append(out, platform.ILike("file_name", wildcard(term)))
				}
				if cat, ok := f["category"]; ok && cat != "" {
					out = append(out, platform.Eq("category", cat))
				}
				return out
			},
		},
		sync.Options[models.Attachment]{Table: "attachments"},
	)
	return a
}

// Load fetches the browser list. Empty search and category mean
// everything, newest first.
func (a *Attachments) Load(ctx context.Context, search string, category models.FileCategory) error {
	filter := sync.Filter{}
	if search != "" {
		filter["search"] = search
	}
	if category != "" {
		filter["category"] = string(category)
	}
	return a.List.Load(ctx, filter)
}

// Rename changes the display name of a file. The stored object keeps its
// path; only the row changes.
func (a *Attachments) Rename(ctx context.Context, id, name string) (models.Attachment, error) {
	if name == "" {
		return models.Attachment{}, models.NewValidationError("File name is required")
	}
	return a.List.Update(ctx, id, map[string]any{"file_name": name}, func(att models.Attachment) models.Attachment {
		att.FileName = name
		return att
	})
}

// Delete removes the attachment row. The stored object is left behind;
// storage cleanup is a server-side concern.
func (a *Attachments) Delete(ctx context.Context, id string) error {
	return a.List.Delete(ctx, id)
}

// Close releases the controller.
func (a *Attachments) Close() { a.List.Close() }

// Listener binds the browser to the change feed.
func (a *Attachments) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "attachments", nil, a.List)
}
