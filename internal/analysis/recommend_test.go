package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/perftracker/internal/models"
)

// weeks builds days of identical rows for one product ending endOffset days
// before latest. Clicks and impressions default to healthy values.
func weeks(name string, days, endOffset int, revenue, spend float64) []models.PerformanceRecord {
	out := make([]models.PerformanceRecord, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, models.PerformanceRecord{
			Date:        latest.AddDate(0, 0, -endOffset-(days-1-i)),
			Name:        name,
			Category:    "Accessories",
			Impressions: 1000,
			Clicks:      50,
			UnitsSold:   10,
			AdSpend:     spend,
			Revenue:     revenue,
		})
	}
	return out
}

func alerts(recs []models.Recommendation, product string) []string {
	var out []string
	for _, r := range recs {
		if r.Product == product {
			out = append(out, r.Alert)
		}
	}
	return out
}

func find(recs []models.Recommendation, product, alert string) *models.Recommendation {
	for i := range recs {
		if recs[i].Product == product && recs[i].Alert == alert {
			return &recs[i]
		}
	}
	return nil
}

func TestHighACOS(t *testing.T) {
	recs := GenerateRecommendations(weeks("P", 14, 0, 100, 80))
	r := find(recs, "P", "High ACOS")
	require.NotNil(t, r)
	assert.Equal(t, models.SeverityWarning, r.Severity)
	assert.InDelta(t, 0.8, r.ThisWeek, 1e-9)
	require.NotNil(t, r.LastWeek)
	assert.Equal(t, "➡️ stable", r.Trend)

	recs = GenerateRecommendations(weeks("P", 14, 0, 100, 20))
	assert.NotContains(t, alerts(recs, "P"), "High ACOS")
}

func TestStrongROAS(t *testing.T) {
	recs := GenerateRecommendations(weeks("P", 14, 0, 100, 10))
	r := find(recs, "P", "Strong ROAS")
	require.NotNil(t, r)
	assert.Equal(t, models.SeveritySuccess, r.Severity)
	assert.InDelta(t, 10, r.ThisWeek, 1e-9)

	recs = GenerateRecommendations(weeks("P", 14, 0, 100, 100))
	assert.NotContains(t, alerts(recs, "P"), "Strong ROAS")
}

func TestLowCTRAndConversion(t *testing.T) {
	rows := weeks("P", 7, 0, 100, 50)
	for i := range rows {
		rows[i].Impressions = 10000
		rows[i].Clicks = 100
		rows[i].UnitsSold = 5
	}
	recs := GenerateRecommendations(rows)
	ctr := find(recs, "P", "Low CTR")
	require.NotNil(t, ctr)
	assert.InDelta(t, 0.01, ctr.ThisWeek, 1e-12)
	conv := find(recs, "P", "Low Conversion")
	require.NotNil(t, conv)
	assert.Equal(t, models.SeverityInfo, conv.Severity)
	assert.Equal(t, "Conv. Rate", conv.Metric)
}

func TestWeeklyRatiosUseRawSums(t *testing.T) {
	// daily ACOS 0.9 and 0.001 average above the threshold; the week's
	// ACOS is 10/1010
	rows := weeks("P", 2, 0, 0, 0)
	rows[0].Revenue, rows[0].AdSpend = 10, 9
	rows[1].Revenue, rows[1].AdSpend = 1000, 1
	recs := GenerateRecommendations(rows)
	assert.Nil(t, find(recs, "P", "High ACOS"))
	r := find(recs, "P", "Strong ROAS")
	require.NotNil(t, r)
	assert.InDelta(t, 101, r.ThisWeek, 1e-9)
}

func TestNoPriorData(t *testing.T) {
	recs := GenerateRecommendations(weeks("P", 7, 0, 100, 80))
	r := find(recs, "P", "High ACOS")
	require.NotNil(t, r)
	assert.Nil(t, r.LastWeek)
	assert.Equal(t, "➡️ no prior data", r.Trend)
	assert.Nil(t, find(recs, "P", "Revenue Drop"))
}

func TestRevenueDrop(t *testing.T) {
	rows := weeks("P", 14, 0, 1000, 100)
	for i := 7; i < 14; i++ {
		rows[i].Revenue = 500
	}
	recs := GenerateRecommendations(rows)
	r := find(recs, "P", "Revenue Drop")
	require.NotNil(t, r)
	assert.Equal(t, "📉 -50.0%", r.Trend)
	assert.InDelta(t, 500, r.ThisWeek, 1e-9)
	require.NotNil(t, r.LastWeek)
	assert.InDelta(t, 1000, *r.LastWeek, 1e-9)

	// ROAS fell from 10 to 5, still strong but trending down
	roas := find(recs, "P", "Strong ROAS")
	require.NotNil(t, roas)
	assert.Equal(t, "📉 -50.0%", roas.Trend)
}

func TestRevenueDropComparesDailyMeans(t *testing.T) {
	// three reported days at 100 last week, seven at 40 this week: the sums
	// (300 vs 280) look flat but the daily mean fell by 60%
	rows := append(weeks("P", 3, 7, 100, 10), weeks("P", 7, 0, 40, 4)...)
	recs := GenerateRecommendations(rows)
	r := find(recs, "P", "Revenue Drop")
	require.NotNil(t, r)
	assert.InDelta(t, 40, r.ThisWeek, 1e-9)
	require.NotNil(t, r.LastWeek)
	assert.InDelta(t, 100, *r.LastWeek, 1e-9)
	assert.Equal(t, "📉 -60.0%", r.Trend)
}

func TestTrendPolarity(t *testing.T) {
	prev := 0.40
	assert.Equal(t, "📉 +25.0%", trend(0.50, &prev, false))
	assert.Equal(t, "📈 -25.0%", trend(0.30, &prev, false))
	assert.Equal(t, "📈 +25.0%", trend(0.50, &prev, true))
	assert.Equal(t, "➡️ stable", trend(0.401, &prev, true))
	zero := 0.0
	assert.Equal(t, "➡️ no prior data", trend(1, &zero, true))
	assert.Equal(t, "➡️ no prior data", trend(1, nil, true))
}

func TestProductSpecificLatestDate(t *testing.T) {
	// Old stopped reporting ten days before the rest of the table but is
	// still judged on its own last week.
	table := append(weeks("Old", 14, 10, 100, 80), weeks("New", 14, 0, 100, 20)...)
	recs := GenerateRecommendations(table)
	r := find(recs, "Old", "High ACOS")
	require.NotNil(t, r)
	assert.NotNil(t, r.LastWeek)
}

func TestSeverityOrdering(t *testing.T) {
	table := append(weeks("A Strong", 14, 0, 100, 10), weeks("B Costly", 14, 0, 100, 80)...)
	weak := weeks("C Weak", 14, 0, 100, 20)
	for i := range weak {
		weak[i].UnitsSold = 1
	}
	table = append(table, weak...)

	recs := GenerateRecommendations(table)
	require.NotEmpty(t, recs)
	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t, recs[i-1].Severity.Rank(), recs[i].Severity.Rank())
	}
	assert.Equal(t, models.SeverityWarning, recs[0].Severity)
	assert.Equal(t, "B Costly", recs[0].Product)
	assert.Equal(t, models.SeveritySuccess, recs[len(recs)-1].Severity)

	// success tier keeps product order
	var success []string
	for _, r := range recs {
		if r.Severity == models.SeveritySuccess {
			success = append(success, r.Product)
		}
	}
	assert.Equal(t, []string{"A Strong", "C Weak"}, success)
}
