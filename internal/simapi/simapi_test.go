package simapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/perftracker/internal/analysis"
	"github.com/AngelCh415/perftracker/internal/models"
)

var today = time.Date(2025, 8, 31, 14, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(NewGenerator(42), func() time.Time { return today }).Routes(log))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestGeneratorIsDeterministic(t *testing.T) {
	g := NewGenerator(7)
	p := catalog[8]
	assert.Equal(t, g.Daily(p, today), g.Daily(p, today.Add(-5*time.Hour)))
	assert.NotEqual(t, g.Daily(p, today), NewGenerator(8).Daily(p, today))
}

func TestGeneratorRowsAreConsistent(t *testing.T) {
	g := NewGenerator(1)
	price := map[int]float64{}
	for _, p := range catalog {
		price[p.ID] = p.Price
	}
	for _, row := range g.Range(today, 30) {
		assert.Equal(t, analysis.Round(float64(row.UnitsSold)*price[row.ProductID], 2), row.Revenue)
		assert.Equal(t, analysis.Round(row.AdSpend, 2), row.AdSpend)
		assert.GreaterOrEqual(t, row.Impressions, 500)
		assert.LessOrEqual(t, row.Clicks, row.Impressions)
		assert.LessOrEqual(t, row.UnitsSold, row.Clicks)
		assert.GreaterOrEqual(t, row.AdSpend, 0.0)
		assert.GreaterOrEqual(t, row.Revenue, 0.0)
	}
}

func TestDailyPerformanceEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var rows []models.DailyPerformance
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/daily-performance?days_back=2", &rows))
	require.Len(t, rows, 3*len(catalog))
	assert.Equal(t, "2025-08-31", rows[0].Date)
	assert.Equal(t, "2025-08-29", rows[len(rows)-1].Date)

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/daily-performance", &rows))
	assert.Len(t, rows, len(catalog))

	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/daily-performance?days_back=x", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/daily-performance?days_back=-1", nil))
}

func TestProductsAndPromotionsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var products []models.Product
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/products", &products))
	require.Len(t, products, 15)
	assert.Equal(t, "Wireless Mouse", products[0].Name)

	var promos []models.PromotionFeed
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/promotions", &promos))
	require.Len(t, promos, len(promoPlans))
	assert.Equal(t, models.PromotionFeed{ProductID: 4, DiscountPercent: 15, StartDate: "2025-08-11", EndDate: "2025-08-15"}, promos[0])
}
