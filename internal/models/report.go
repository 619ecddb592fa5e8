package models

import "time"

// DailyReport is one owner's work log for a date. The seven list fields
// hold ordered free-text entries; empty entries are filtered on save.
// Multiple reports per owner per date are allowed (the remote table has
// no uniqueness constraint and this client preserves that).
type DailyReport struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Date         string    `json:"date"` // YYYY-MM-DD
	SiteWork     []string  `json:"site_work"`
	Delivery     []string  `json:"delivery"`
	Meeting      []string  `json:"meeting"`
	Production   []string  `json:"production"`
	Estimate     []string  `json:"estimate"`
	TomorrowPlan []string  `json:"tomorrow_plan"`
	FuturePlan   []string  `json:"future_plan"`
	TodayComment string    `json:"today_comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r DailyReport) EntityID() string { return r.ID }

// FilterEmptyEntries drops blank lines from every list field, preserving
// order of the remaining entries.
func (r *DailyReport) FilterEmptyEntries() {
	r.SiteWork = filterEmpty(r.SiteWork)
	r.Delivery = filterEmpty(r.Delivery)
	r.Meeting = filterEmpty(r.Meeting)
	r.Production = filterEmpty(r.Production)
	r.Estimate = filterEmpty(r.Estimate)
	r.TomorrowPlan = filterEmpty(r.TomorrowPlan)
	r.FuturePlan = filterEmpty(r.FuturePlan)
}

func filterEmpty(entries []string) []string {
	out := entries[:0:0]
	for _, e := range entries {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
