package controller

import (
	"context"
	"time"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Properties owns the events calendar: managed construction projects that
// span a date range and appear on every day inside it.
type Properties struct {
	List *sync.Controller[models.Property]
}

// NewProperties wires the property controller.
func NewProperties(records *platform.RecordsClient) *Properties {
	p := &Properties{}
	p.List = sync.New[models.Property](
		&tableStore[models.Property]{
			records:   records,
			table:     "properties",
			orderBy:   "start_date",
			ascending: true,
			buildFilters: func(f sync.Filter) []platform.Filter {
				if loc, ok := f["location"]; ok && loc != "" {
					return []platform.Filter{platform.Eq("location", loc)}
				}
				return nil
			},
		},
		sync.Options[models.Property]{
			Table:    "properties",
			Validate: validateProperty,
		},
	)
	return p
}

func validateProperty(p models.Property) error {
	if p.Title == "" {
		return models.NewValidationError("Property title is required")
	}
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return models.NewValidationError("Start date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", p.EndDate)
	if err != nil {
		return models.NewValidationError("End date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return models.NewValidationError("End date cannot precede start date")
	}
	return nil
}

// Load fetches the calendar, optionally scoped to one office location.
func (p *Properties) Load(ctx context.Context, location string) error {
	filter := sync.Filter{}
	if location != "" {
		filter["location"] = location
	}
	return p.List.Load(ctx, filter)
}

// On returns the loaded properties active on day, both boundary dates
// inclusive. Rows with malformed dates never appear.
func (p *Properties) On(day time.Time) []models.Property {
	var out []models.Property
	for _, prop := range p.List.Values() {
		if prop.OccursOn(day) {
			out = append(out, prop)
		}
	}
	return out
}

// Create registers a property. The display color is derived from the
// office location and stored denormalized on the row.
func (p *Properties) Create(ctx context.Context, creatorID string, prop models.Property) (models.Property, error) {
	prop.CreatorID = creatorID
	prop.Color = models.ColorForLocation(prop.Location)
	return p.List.Create(ctx, prop)
}

// Update patches a property. A location change re-derives the color so
// the denormalized columns never disagree with the location.
func (p *Properties) Update(ctx context.Context, id string, patch map[string]any) (models.Property, error) {
	if loc, ok := patch["location"].(string); ok {
		color := models.ColorForLocation(loc)
		patch["color_name"] = color.Name
		patch["color_bg"] = color.Bg
		patch["color_text"] = color.Text
		patch["color_light"] = color.Light
	}
	return p.List.Update(ctx, id, patch, func(cur models.Property) models.Property {
		if title, ok := patch["title"].(string); ok {
			cur.Title = title
		}
		if start, ok := patch["start_date"].(string); ok {
			cur.StartDate = start
		}
		if end, ok := patch["end_date"].(string); ok {
			cur.EndDate = end
		}
		if loc, ok := patch["location"].(string); ok {
			cur.Location = loc
			cur.Color = models.ColorForLocation(loc)
		}
		if notes, ok := patch["notes"].(string); ok {
			cur.Notes = notes
		}
		if manager, ok := patch["manager"].(string); ok {
			cur.Manager = manager
		}
		return cur
	})
}

// Delete removes a property from the calendar.
func (p *Properties) Delete(ctx context.Context, id string) error {
	return p.List.Delete(ctx, id)
}

// Close releases the controller.
func (p *Properties) Close() { p.List.Close() }

// Listener binds the calendar to the change feed; the calendar is shared,
// so no identity filter.
func (p *Properties) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "properties", nil, p.List)
}
