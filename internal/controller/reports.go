package controller

import (
	"context"
	"time"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Reports owns the daily report screen. Each row is one owner's log for a
// date; the table has no uniqueness constraint on (owner, date) and this
// controller deliberately preserves that: saving twice creates two rows.
type Reports struct {
	List   *sync.Controller[models.DailyReport]
	selfID string
}

// NewReports wires the report controller for the signed-in user.
func NewReports(records *platform.RecordsClient, selfID string) *Reports {
	r := &Reports{selfID: selfID}
	r.List = sync.New[models.DailyReport](
		&tableStore[models.DailyReport]{
			records: records,
			table:   "daily_reports",
			orderBy: "date",
			buildFilters: func(f sync.Filter) []platform.Filter {
				var out []platform.Filter
				if owner, ok := f["owner"]; ok && owner != "" {
					out = append(out, platform.Eq("owner_id", owner))
				}
				if from, ok := f["from"]; ok && from != "" {
					out = append(out, platform.Filter{Column: "date", Op: "gte", Value: from})
				}
				if to, ok := f["to"]; ok && to != "" {
					out = append(out, platform.Filter{Column: "date", Op: "lte", Value: to})
				}
				return out
			},
		},
		sync.Options[models.DailyReport]{
			Table: "daily_reports",
			Validate: func(rep models.DailyReport) error {
				if _, err := time.Parse("2006-01-02", rep.Date); err != nil {
					return models.NewValidationError("Report date must be YYYY-MM-DD")
				}
				return nil
			},
		},
	)
	return r
}

// LoadMonth fetches every team member's reports for the month containing
// day.
func (r *Reports) LoadMonth(ctx context.Context, day time.Time) error {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return r.List.Load(ctx, sync.Filter{
		"from": first.Format("2006-01-02"),
		"to":   last.Format("2006-01-02"),
	})
}

// LoadMine fetches only the current user's reports.
func (r *Reports) LoadMine(ctx context.Context) error {
	return r.List.Load(ctx, sync.Filter{"owner": r.selfID})
}

// Save persists a new report for the current user. Blank entries are
// dropped from every list field before the write; entry order is
// otherwise preserved.
func (r *Reports) Save(ctx context.Context, report models.DailyReport) (models.DailyReport, error) {
	report.OwnerID = r.selfID
	report.FilterEmptyEntries()
	return r.List.Create(ctx, report)
}

// Amend rewrites an existing report of the current user.
func (r *Reports) Amend(ctx context.Context, id string, report models.DailyReport) (models.DailyReport, error) {
	var zero models.DailyReport
	existing, ok := r.find(id)
	if !ok {
		return zero, models.NewNotFoundError("daily_reports", id)
	}
	if existing.OwnerID != r.selfID {
		return zero, models.NewUnauthorizedError("Only the owner can amend a report")
	}
	report.FilterEmptyEntries()
	patch := map[string]any{
		"site_work":     report.SiteWork,
		"delivery":      report.Delivery,
		"meeting":       report.Meeting,
		"production":    report.Production,
		"estimate":      report.Estimate,
		"tomorrow_plan": report.TomorrowPlan,
		"future_plan":   report.FuturePlan,
		"today_comment": report.TodayComment,
	}
	return r.List.Update(ctx, id, patch, func(cur models.DailyReport) models.DailyReport {
		cur.SiteWork = report.SiteWork
		cur.Delivery = report.Delivery
		cur.Meeting = report.Meeting
		cur.Production = report.Production
		cur.Estimate = report.Estimate
		cur.TomorrowPlan = report.TomorrowPlan
		cur.FuturePlan = report.FuturePlan
		cur.TodayComment = report.TodayComment
		return cur
	})
}

// Remove deletes one of the current user's reports.
func (r *Reports) Remove(ctx context.Context, id string) error {
	existing, ok := r.find(id)
	if !ok {
		return models.NewNotFoundError("daily_reports", id)
	}
	if existing.OwnerID != r.selfID {
		return models.NewUnauthorizedError("Only the owner can delete a report")
	}
	return r.List.Delete(ctx, id)
}

// Close releases the controller.
func (r *Reports) Close() { r.List.Close() }

// Listener binds the report list to the change feed. Reports are visible
// team-wide, so no identity filter.
func (r *Reports) Listener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "daily_reports", nil, r.List)
}

func (r *Reports) find(id string) (models.DailyReport, bool) {
	for _, rep := range r.List.Values() {
		if rep.ID == id {
			return rep, true
		}
	}
	return models.DailyReport{}, false
}
