package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Service builds the administrator dashboard.
type Service interface {
	// Dashboard aggregates reports visible to actor. Counts cover every report
	// in scope; trends and recent counts cover the timeframe only.
	Dashboard(ctx context.Context, actor policy.Actor, timeframe Timeframe) (*Dashboard, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a dashboard service.
func NewService(repo *Repository, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	if clock == nil {
		clock = db.UTCNow
	}
	return &service{repo: repo, now: clock}, nil
}

func (s *service) Dashboard(ctx context.Context, actor policy.Actor, timeframe Timeframe) (*Dashboard, error) {
	if !policy.IsAdministrator(actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Administrator access required").WithReason("ADMIN_REQUIRED")
	}
	if _, ok := timeframeDays[timeframe]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Timeframe must be one of 7d, 30d, 90d, 1y").WithReason(ReasonInvalidTimeframe)
	}

	area, _ := policy.AreaScope(actor)
	since := timeframe.Since(s.now())
	out := &Dashboard{Timeframe: timeframe}

	statuses, err := s.repo.CountByStatus(ctx, area)
	if err != nil {
		return nil, wrap(err, "count by status")
	}
	out.ByStatus, out.Overview = statusBreakdown(statuses)

	priorities, err := s.repo.CountByPriority(ctx, area)
	if err != nil {
		return nil, wrap(err, "count by priority")
	}
	out.ByPriority = priorityBreakdown(priorities)

	categories, err := s.repo.CountByCategory(ctx, area)
	if err != nil {
		return nil, wrap(err, "count by category")
	}
	out.ByCategory = make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		out.ByCategory = append(out.ByCategory, CategoryCount{
			Category: enums.ReportCategory(c.Category),
			Count:    c.Count,
			Pending:  c.Pending,
			Resolved: c.Resolved,
		})
	}

	if out.Overview.RecentReports, err = s.repo.CountCreatedSince(ctx, area, since); err != nil {
		return nil, wrap(err, "count recent")
	}

	spans, err := s.repo.ResolutionSpans(ctx, area)
	if err != nil {
		return nil, wrap(err, "resolution spans")
	}
	out.Overview.AverageResolutionDays = averageDays(spans)

	created, err := s.repo.CreatedSince(ctx, area, since)
	if err != nil {
		return nil, wrap(err, "created trend")
	}
	resolved, err := s.repo.ResolvedSince(ctx, area, since)
	if err != nil {
		return nil, wrap(err, "resolved trend")
	}
	out.Trends = dailyTrend(created, resolved)

	reporters, err := s.repo.TopReporters(ctx, area)
	if err != nil {
		return nil, wrap(err, "top reporters")
	}
	out.TopReporters = make([]ReporterStat, 0, len(reporters))
	for _, r := range reporters {
		out.TopReporters = append(out.TopReporters, ReporterStat{
			UserID:        r.ReporterID,
			Name:          r.Name,
			Email:         r.Email,
			ReportCount:   r.ReportCount,
			ResolvedCount: r.ResolvedCount,
		})
	}

	return out, nil
}

// statusBreakdown lists every status, zero-filled, in workflow order.
func statusBreakdown(rows []groupCount) ([]StatusCount, Overview) {
	counts := map[string]int64{}
	for _, r := range rows {
		counts[r.Bucket] = r.Count
	}
	var ov Overview
	out := make([]StatusCount, 0, len(counts))
	for _, st := range enums.ReportStatuses() {
		n := counts[st.String()]
		out = append(out, StatusCount{Status: st, Count: n})
		ov.TotalReports += n
		switch st {
		case enums.ReportStatusPending:
			ov.PendingReports = n
		case enums.ReportStatusInProgress:
			ov.InProgressReports = n
		case enums.ReportStatusResolved:
			ov.ResolvedReports = n
		case enums.ReportStatusRejected:
			ov.RejectedReports = n
		}
	}
	return out, ov
}

func priorityBreakdown(rows []groupCount) []PriorityCount {
	counts := map[string]int64{}
	for _, r := range rows {
		counts[r.Bucket] = r.Count
	}
	out := make([]PriorityCount, 0, len(counts))
	for _, p := range enums.ReportPriorities() {
		out = append(out, PriorityCount{Priority: p, Count: counts[p.String()]})
	}
	return out
}

// averageDays is the mean of resolved-created in days, two decimal places.
func averageDays(spans []resolutionRow) float64 {
	if len(spans) == 0 {
		return 0
	}
	total := decimal.Zero
	for _, s := range spans {
		total = total.Add(decimal.NewFromInt(s.ResolvedAt.Sub(s.CreatedAt).Milliseconds()))
	}
	msPerDay := decimal.NewFromInt(int64(24 * time.Hour / time.Millisecond))
	return total.Div(decimal.NewFromInt(int64(len(spans)))).Div(msPerDay).Round(2).InexactFloat64()
}

// dailyTrend buckets timestamps by UTC day, keeping only days with activity.
func dailyTrend(created, resolved []time.Time) []TrendPoint {
	byDay := map[string]*TrendPoint{}
	point := func(t time.Time) *TrendPoint {
		key := t.UTC().Format("2006-01-02")
		p, ok := byDay[key]
		if !ok {
			p = &TrendPoint{Date: key}
			byDay[key] = p
		}
		return p
	}
	for _, t := range created {
		point(t).Created++
	}
	for _, t := range resolved {
		point(t).Resolved++
	}

	out := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func wrap(err error, what string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dashboard: "+what)
}
