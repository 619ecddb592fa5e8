package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccursOnInclusiveRange(t *testing.T) {
	p := Property{StartDate: "2025-06-10", EndDate: "2025-06-12"}

	assert.False(t, p.OccursOn(day(2025, time.June, 9)))
	assert.True(t, p.OccursOn(day(2025, time.June, 10)), "start date is inclusive")
	assert.True(t, p.OccursOn(day(2025, time.June, 11)))
	assert.True(t, p.OccursOn(day(2025, time.June, 12)), "end date is inclusive")
	assert.False(t, p.OccursOn(day(2025, time.June, 13)))
}

func TestOccursOnSingleDay(t *testing.T) {
	p := Property{StartDate: "2025-06-10", EndDate: "2025-06-10"}
	assert.True(t, p.OccursOn(day(2025, time.June, 10)))
	assert.False(t, p.OccursOn(day(2025, time.June, 11)))
}

func TestOccursOnIgnoresTimeOfDay(t *testing.T) {
	p := Property{StartDate: "2025-06-10", EndDate: "2025-06-10"}
	late := time.Date(2025, time.June, 10, 23, 59, 59, 0, time.UTC)
	assert.True(t, p.OccursOn(late))
}

func TestOccursOnMalformedDatesNeverMatch(t *testing.T) {
	tests := []Property{
		{StartDate: "06/10/2025", EndDate: "2025-06-12"},
		{StartDate: "2025-06-10", EndDate: "not a date"},
		{StartDate: "", EndDate: ""},
	}
	for _, p := range tests {
		assert.False(t, p.OccursOn(day(2025, time.June, 10)))
	}
}

func TestColorForLocation(t *testing.T) {
	osaka := ColorForLocation(LocationOsaka)
	assert.Equal(t, "orange", osaka.Name)
	assert.Equal(t, "bg-orange-500", osaka.Bg)

	tokyo := ColorForLocation(LocationTokyo)
	assert.Equal(t, "blue", tokyo.Name)

	// Unknown locations fall back to the default color instead of failing.
	other := ColorForLocation("nagoya")
	assert.Equal(t, "blue", other.Name)
	assert.Equal(t, "bg-blue-100", other.Light)
}
