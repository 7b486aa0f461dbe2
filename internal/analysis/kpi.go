package analysis

import (
	"sort"
	"time"

	"github.com/AngelCh415/perftracker/internal/models"
)

// CalculateKPIs derives CTR, conversion rate, ROAS, ACOS and CPC for every
// row. The input slice is left untouched.
func CalculateKPIs(table []models.PerformanceRecord) []models.KPIRow {
	out := make([]models.KPIRow, 0, len(table))
	for _, r := range table {
		var t totals
		t.add(r)
		out = append(out, models.KPIRow{
			PerformanceRecord: r,
			CTR:               t.ctr(),
			ConversionRate:    t.conversion(),
			ROAS:              t.roas(),
			ACOS:              t.acos(),
			CPC:               t.cpc(),
		})
	}
	return out
}

// Summarize aggregates the table. Averages are ratios of totals, not means
// of per-row ratios.
func Summarize(table []models.PerformanceRecord) models.KPISummary {
	var t totals
	for _, r := range table {
		t.add(r)
	}
	return models.KPISummary{
		TotalRevenue:      t.revenue,
		TotalAdSpend:      t.adSpend,
		TotalClicks:       t.clicks,
		TotalImpressions:  t.impressions,
		TotalUnitsSold:    t.unitsSold,
		AvgROAS:           t.roas(),
		AvgACOS:           t.acos(),
		AvgCTR:            t.ctr(),
		AvgCPC:            t.cpc(),
		AvgConversionRate: t.conversion(),
		RevenuePerUnit:    SafeDiv(t.revenue, float64(t.unitsSold)),
	}
}

// TopSellers returns the n products with the highest total revenue.
func TopSellers(table []models.PerformanceRecord, n int) []models.ProductValue {
	names, groups := groupByProduct(table)
	out := make([]models.ProductValue, 0, len(names))
	for _, name := range names {
		var t totals
		for _, r := range groups[name] {
			t.add(r)
		}
		out = append(out, models.ProductValue{Product: name, Value: t.revenue})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return head(out, n)
}

// WorstPerformers returns the n products with the lowest aggregate ROAS.
// Rows without ad spend are ignored.
func WorstPerformers(table []models.PerformanceRecord, n int) []models.ProductValue {
	names, groups := groupByProduct(table)
	out := make([]models.ProductValue, 0, len(names))
	for _, name := range names {
		var t totals
		for _, r := range groups[name] {
			if r.AdSpend > 0 {
				t.add(r)
			}
		}
		if t.rows == 0 {
			continue
		}
		out = append(out, models.ProductValue{Product: name, Value: t.roas()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return head(out, n)
}

// DayOverDayChange compares each product's revenue on the latest date with
// the previous date present in the table. Nil when fewer than two dates exist.
func DayOverDayChange(table []models.PerformanceRecord) []models.ProductValue {
	seen := map[time.Time]struct{}{}
	var dates []time.Time
	for _, r := range table {
		d := dayUTC(r.Date)
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return nil
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	latest, previous := dates[len(dates)-1], dates[len(dates)-2]

	cur := map[string]float64{}
	prev := map[string]float64{}
	for _, r := range table {
		switch dayUTC(r.Date) {
		case latest:
			cur[r.Name] += r.Revenue
		case previous:
			prev[r.Name] += r.Revenue
		}
	}
	// only products present on both days have a change
	out := make([]models.ProductValue, 0, len(cur))
	for name, c := range cur {
		p, ok := prev[name]
		if !ok {
			continue
		}
		out = append(out, models.ProductValue{Product: name, Value: SafeDiv(c-p, p) * 100})
	}
	sortChanges(out)
	return out
}

// WeekOverWeekChange compares the trailing 7 days with the 7 days before,
// anchored on the latest date of the whole table.
func WeekOverWeekChange(table []models.PerformanceRecord) []models.RevenueChange {
	if len(table) == 0 {
		return nil
	}
	latest := latestDate(table)
	thisStart := latest.AddDate(0, 0, -6)
	lastStart, lastEnd := latest.AddDate(0, 0, -13), latest.AddDate(0, 0, -7)

	type pair struct{ this, last float64 }
	byName := map[string]*pair{}
	for _, r := range table {
		this := inWindow(r.Date, thisStart, latest)
		last := inWindow(r.Date, lastStart, lastEnd)
		if !this && !last {
			continue
		}
		p, ok := byName[r.Name]
		if !ok {
			p = &pair{}
			byName[r.Name] = p
		}
		if this {
			p.this += r.Revenue
		} else {
			p.last += r.Revenue
		}
	}
	out := make([]models.RevenueChange, 0, len(byName))
	for name, p := range byName {
		out = append(out, models.RevenueChange{
			Product:   name,
			ThisWeek:  p.this,
			LastWeek:  p.last,
			ChangePct: SafeDiv(p.this-p.last, p.last) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChangePct != out[j].ChangePct {
			return out[i].ChangePct > out[j].ChangePct
		}
		return out[i].Product < out[j].Product
	})
	return out
}

func sortChanges(v []models.ProductValue) {
	sort.Slice(v, func(i, j int) bool {
		if v[i].Value != v[j].Value {
			return v[i].Value > v[j].Value
		}
		return v[i].Product < v[j].Product
	})
}

func head[T any](rows []T, n int) []T {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
