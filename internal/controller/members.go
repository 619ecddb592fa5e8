package controller

import (
	"context"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Members owns the company directory. Read-only from this screen; profile
// edits go through the session provider.
type Members struct {
	List *sync.Controller[models.Identity]
}

// NewMembers wires the directory controller.
func NewMembers(records *platform.RecordsClient) *Members {
	m := &Members{}
	m.List = sync.New[models.Identity](
		&tableStore[models.Identity]{
			records:   records,
			table:     "profiles",
			orderBy:   "name",
			ascending: true,
			buildFilters: func(f sync.Filter) []platform.Filter {
				var out []platform.Filter
				if term, ok := f["search"]; ok && term != "" {
					out = append(out, platform.ILike("name", wildcard(term)))
				}
				if dept, ok := f["department"]; ok && dept != "" {
					out = append(out, platform.Eq("department", dept))
				}
				return out
			},
		},
		sync.Options[models.Identity]{Table: "profiles"},
	)
	return m
}

// Load fetches the directory, optionally narrowed by name search and
// department.
func (m *Members) Load(ctx context.Context, search, department string) error {
	filter := sync.Filter{}
	if search != "" {
		filter["search"] = search
	}
	if department != "" {
		filter["department"] = department
	}
	return m.List.Load(ctx, filter)
}

// Find returns the loaded member with the given id.
func (m *Members) Find(id string) (models.Identity, bool) {
	for _, member := range m.List.Values() {
		if member.ID == id {
			return member, true
		}
	}
	return models.Identity{}, false
}

// Close releases the controller.
func (m *Members) Close() { m.List.Close() }

// Listener binds the directory to the change feed.
func (m *Members) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "profiles", nil, m.List)
}
