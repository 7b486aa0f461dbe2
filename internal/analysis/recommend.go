package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AngelCh415/perftracker/internal/models"
)

const (
	highACOS          = 0.35
	strongROAS        = 4.0
	lowCTR            = 0.02
	lowConversion     = 0.08
	revenueDropFactor = 0.85
)

const (
	iconUp   = "📈"
	iconDown = "📉"
	iconFlat = "➡️"
)

type weekStats struct {
	ctr, conversion, roas, acos, revenue float64
}

// weekAggregate returns ratios recomputed from the raw sums of the 7 days
// ending at end, or false when the window holds no rows. Revenue is the mean
// per reported day, so windows with gaps compare fairly.
func weekAggregate(rows []models.PerformanceRecord, end time.Time) (weekStats, bool) {
	start := end.AddDate(0, 0, -6)
	var t totals
	for _, r := range rows {
		if inWindow(r.Date, start, end) {
			t.add(r)
		}
	}
	if t.rows == 0 {
		return weekStats{}, false
	}
	return weekStats{
		ctr:        t.ctr(),
		conversion: t.conversion(),
		roas:       t.roas(),
		acos:       t.acos(),
		revenue:    t.revenue / float64(t.rows),
	}, true
}

// trend describes the change from previous to current. With lower-is-better
// metrics a rise gets the down icon.
func trend(current float64, previous *float64, higherIsBetter bool) string {
	if previous == nil || *previous == 0 {
		return iconFlat + " no prior data"
	}
	pct := (current - *previous) / math.Abs(*previous) * 100
	if math.Abs(pct) < 1 {
		return iconFlat + " stable"
	}
	icon := iconDown
	if (pct > 0) == higherIsBetter {
		icon = iconUp
	}
	return fmt.Sprintf("%s %+.1f%%", icon, pct)
}

type rule struct {
	alert, icon, metric, action string
	severity                    models.Severity
	higherIsBetter              bool
	value                       func(weekStats) float64
	fires                       func(weekStats) bool
}

var rules = []rule{
	{
		alert: "High ACOS", icon: "⚠️", metric: "ACOS", severity: models.SeverityWarning,
		action: "Reduce bids or pause low-converting keywords.",
		value:  func(w weekStats) float64 { return w.acos },
		fires:  func(w weekStats) bool { return w.acos > highACOS },
	},
	{
		alert: "Strong ROAS", icon: "🚀", metric: "ROAS", severity: models.SeveritySuccess, higherIsBetter: true,
		action: "Scale ad budget to capture more demand.",
		value:  func(w weekStats) float64 { return w.roas },
		fires:  func(w weekStats) bool { return w.roas > strongROAS },
	},
	{
		alert: "Low CTR", icon: "🖼️", metric: "CTR", severity: models.SeverityWarning, higherIsBetter: true,
		action: "A/B test main image or rewrite product title.",
		value:  func(w weekStats) float64 { return w.ctr },
		fires:  func(w weekStats) bool { return w.ctr < lowCTR },
	},
	{
		alert: "Low Conversion", icon: "💡", metric: "Conv. Rate", severity: models.SeverityInfo, higherIsBetter: true,
		action: "Review pricing, add reviews, or improve bullet points.",
		value:  func(w weekStats) float64 { return w.conversion },
		fires:  func(w weekStats) bool { return w.conversion < lowConversion },
	},
}

// GenerateRecommendations evaluates the weekly KPI rules per product. Each
// product is measured against its own latest date. Output is ordered
// warning, info, success and keeps product order within a tier.
func GenerateRecommendations(table []models.PerformanceRecord) []models.Recommendation {
	var out []models.Recommendation
	names, groups := groupByProduct(table)
	for _, name := range names {
		rows := groups[name]
		latest := rows[len(rows)-1].Date
		this, ok := weekAggregate(rows, latest)
		if !ok {
			continue
		}
		last, hasLast := weekAggregate(rows, latest.AddDate(0, 0, -7))
		category := rows[0].Category

		for _, rl := range rules {
			if !rl.fires(this) {
				continue
			}
			var prev *float64
			if hasLast {
				v := rl.value(last)
				prev = &v
			}
			out = append(out, models.Recommendation{
				Product:  name,
				Category: category,
				Alert:    rl.alert,
				Icon:     rl.icon,
				Severity: rl.severity,
				Metric:   rl.metric,
				ThisWeek: rl.value(this),
				LastWeek: prev,
				Trend:    trend(rl.value(this), prev, rl.higherIsBetter),
				Action:   rl.action,
			})
		}

		if hasLast && this.revenue < last.revenue*revenueDropFactor {
			lw := last.revenue
			pct := SafeDiv(this.revenue-lw, lw) * 100
			out = append(out, models.Recommendation{
				Product:  name,
				Category: category,
				Alert:    "Revenue Drop",
				Icon:     iconDown,
				Severity: models.SeverityWarning,
				Metric:   "Revenue",
				ThisWeek: this.revenue,
				LastWeek: &lw,
				Trend:    fmt.Sprintf("%s %.1f%%", iconDown, pct),
				Action:   "Investigate stock levels, pricing changes, or ad budget drops.",
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity.Rank() < out[j].Severity.Rank() })
	return out
}
