package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/perftracker/internal/models"
)

// flatRevenue gives a product days of constant revenue ending endOffset days
// before latest.
func flatRevenue(name string, days, endOffset int, revenue float64) []models.PerformanceRecord {
	out := make([]models.PerformanceRecord, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, models.PerformanceRecord{
			Date:     latest.AddDate(0, 0, -endOffset-(days-1-i)),
			Name:     name,
			Category: "Electronics",
			Revenue:  revenue,
		})
	}
	return out
}

func withLast(rows []models.PerformanceRecord, revenue float64) []models.PerformanceRecord {
	rows[len(rows)-1].Revenue = revenue
	return rows
}

func TestDetectAnomaliesStableSeries(t *testing.T) {
	assert.Empty(t, DetectAnomalies(flatRevenue("Stable", 30, 0, 200), DefaultAnomalyOptions()))
}

func TestDetectAnomaliesShortHistorySkipped(t *testing.T) {
	table := withLast(flatRevenue("Short", 13, 0, 200), 5000)
	assert.Empty(t, DetectAnomalies(table, DefaultAnomalyOptions()))
}

func TestDetectAnomaliesSpike(t *testing.T) {
	table := withLast(flatRevenue("Spike Product", 30, 0, 200), 5000)
	got := DetectAnomalies(table, DefaultAnomalyOptions())
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.Spike, a.Direction)
	assert.Greater(t, a.ZScore, 0.0)
	assert.Equal(t, "Spike Product", a.Product)
	assert.Equal(t, "Electronics", a.Category)
	assert.Equal(t, latest, a.Date)
	assert.Equal(t, 5000.0, a.Revenue)
	assert.InDelta(t, 360, a.ExpectedMean, 1e-9)
	// a single outlier among n points always sits at (n-1)/sqrt(n)
	assert.InDelta(t, 29/math.Sqrt(30), a.ZScore, 1e-9)
}

func TestDetectAnomaliesDrop(t *testing.T) {
	table := withLast(flatRevenue("Drop Product", 30, 0, 200), 1)
	got := DetectAnomalies(table, DefaultAnomalyOptions())
	require.Len(t, got, 1)
	assert.Equal(t, models.Drop, got[0].Direction)
	assert.Less(t, got[0].ZScore, 0.0)
}

func TestDetectAnomaliesSortedByAbsZ(t *testing.T) {
	alpha := withLast(flatRevenue("Alpha", 20, 0, 200), 1)
	beta := withLast(flatRevenue("Beta", 30, 0, 200), 9000)
	stable := flatRevenue("Gamma", 30, 0, 200)
	table := append(append(alpha, beta...), stable...)

	got := DetectAnomalies(table, DefaultAnomalyOptions())
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[0].Product)
	assert.Equal(t, "Alpha", got[1].Product)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, math.Abs(got[i-1].ZScore), math.Abs(got[i].ZScore))
	}
}

func TestDetectAnomaliesUsesGlobalCutoff(t *testing.T) {
	// Stale ends ten days before the newest row in the table, so its
	// outlier falls outside the shared window.
	stale := withLast(flatRevenue("Stale", 30, 10, 200), 5000)
	fresh := flatRevenue("Fresh", 30, 0, 200)
	got := DetectAnomalies(append(stale, fresh...), DefaultAnomalyOptions())
	assert.Empty(t, got)

	// with a wide enough window it shows up
	got = DetectAnomalies(append(stale, fresh...), AnomalyOptions{ZThreshold: 1.8, WindowDays: 11})
	require.Len(t, got, 1)
	assert.Equal(t, "Stale", got[0].Product)
}

func TestDetectAnomaliesThreshold(t *testing.T) {
	table := withLast(flatRevenue("P", 30, 0, 200), 5000)
	assert.Empty(t, DetectAnomalies(table, AnomalyOptions{ZThreshold: 6, WindowDays: 7}))
}

func TestDetectAnomaliesUnsortedInput(t *testing.T) {
	table := withLast(flatRevenue("P", 30, 0, 200), 5000)
	for i, j := 0, len(table)-1; i < j; i, j = i+1, j-1 {
		table[i], table[j] = table[j], table[i]
	}
	got := DetectAnomalies(table, DefaultAnomalyOptions())
	require.Len(t, got, 1)
	assert.Equal(t, latest, got[0].Date)
}
