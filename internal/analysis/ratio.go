package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/perftracker/internal/models"
)

// SafeDiv divides a by b, substituting 1 for a zero denominator.
// Every ratio in the package goes through here, so results are never NaN or Inf.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		b = 1
	}
	return a / b
}

// Round rounds half away from zero to the given number of decimal places.
func Round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "all")
}

// FilterTable keeps rows matching both product and category. An empty or
// "All" filter matches everything.
func FilterTable(table []models.PerformanceRecord, product, category string) []models.PerformanceRecord {
	out := make([]models.PerformanceRecord, 0, len(table))
	for _, r := range table {
		if !isAll(product) && r.Name != product {
			continue
		}
		if !isAll(category) && r.Category != category {
			continue
		}
		out = append(out, r)
	}
	return out
}

// groupByProduct splits the table per product name, each group sorted by
// date. Names come back sorted.
func groupByProduct(table []models.PerformanceRecord) ([]string, map[string][]models.PerformanceRecord) {
	groups := make(map[string][]models.PerformanceRecord)
	for _, r := range table {
		groups[r.Name] = append(groups[r.Name], r)
	}
	names := make([]string, 0, len(groups))
	for name, rows := range groups {
		names = append(names, name)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}
	sort.Strings(names)
	return names, groups
}

func latestDate(table []models.PerformanceRecord) time.Time {
	var latest time.Time
	for _, r := range table {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

// inWindow reports whether d lies in [from, to], comparing calendar days.
func inWindow(d, from, to time.Time) bool {
	d = dayUTC(d)
	return !d.Before(dayUTC(from)) && !d.After(dayUTC(to))
}

type totals struct {
	impressions int
	clicks      int
	adSpend     float64
	unitsSold   int
	revenue     float64
	rows        int
}

func (t *totals) add(r models.PerformanceRecord) {
	t.impressions += r.Impressions
	t.clicks += r.Clicks
	t.adSpend += r.AdSpend
	t.unitsSold += r.UnitsSold
	t.revenue += r.Revenue
	t.rows++
}

func (t totals) ctr() float64        { return SafeDiv(float64(t.clicks), float64(t.impressions)) }
func (t totals) conversion() float64 { return SafeDiv(float64(t.unitsSold), float64(t.clicks)) }
func (t totals) roas() float64       { return SafeDiv(t.revenue, t.adSpend) }
func (t totals) acos() float64       { return SafeDiv(t.adSpend, t.revenue) }
func (t totals) cpc() float64        { return SafeDiv(t.adSpend, float64(t.clicks)) }
