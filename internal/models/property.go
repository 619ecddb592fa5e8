package models

import "time"

// Office location tags. The calendar color of a property is derived from
// its location and stored denormalized on the row.
const (
	LocationTokyo = "tokyo"
	LocationOsaka = "osaka"
)

// PropertyColor is the denormalized display color set for a property.
type PropertyColor struct {
	Name  string `json:"color_name"`
	Bg    string `json:"color_bg"`
	Text  string `json:"color_text"`
	Light string `json:"color_light"`
}

// ColorForLocation derives the calendar color from the office location.
func ColorForLocation(location string) PropertyColor {
	if location == LocationOsaka {
		return PropertyColor{Name: "orange", Bg: "bg-orange-500", Text: "text-orange-700", Light: "bg-orange-100"}
	}
	return PropertyColor{Name: "blue", Bg: "bg-blue-500", Text: "text-blue-700", Light: "bg-blue-100"}
}

// Property is a managed construction project rendered on the events
// calendar. StartDate and EndDate are YYYY-MM-DD; the property appears on
// every calendar day d with StartDate <= d <= EndDate, both inclusive.
type Property struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	StartDate            string        `json:"start_date"`
	EndDate              string        `json:"end_date"`
	Location             string        `json:"location"`
	ConstructionLocation string        `json:"construction_location"`
	Area                 string        `json:"area"`
	Customer             string        `json:"customer"`
	Manager              string        `json:"manager"`
	Color                PropertyColor `json:"color"`
	Notes                string        `json:"notes"`
	CreatorID            string        `json:"creator_id"`
	AttendeeCount        int           `json:"attendee_count"`
	CreatedAt            time.Time     `json:"created_at"`
}

func (p Property) EntityID() string { return p.ID }

// OccursOn reports whether the property is active on the given day.
// Malformed dates never match.
func (p Property) OccursOn(day time.Time) bool {
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return false
	}
	end, err := time.Parse("2006-01-02", p.EndDate)
	if err != nil {
		return false
	}
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(start) && !d.After(end)
}
