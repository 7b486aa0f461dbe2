package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/forecast"
	"github.com/AngelCh415/perftracker/internal/models"
)

var latest = time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	rows   []models.PerformanceRecord
	promos []models.Promotion
	err    error
}

func (f fakeSource) Table(context.Context) ([]models.PerformanceRecord, error) { return f.rows, f.err }
func (f fakeSource) Promotions(context.Context) ([]models.Promotion, error) {
	return f.promos, f.err
}

// table: two products over 28 days; the lamp spikes on the last day.
func table() []models.PerformanceRecord {
	var out []models.PerformanceRecord
	for i := 0; i < 28; i++ {
		d := latest.AddDate(0, 0, -(27 - i))
		lamp := 100.0 + float64(i%2)
		if i == 27 {
			lamp = 400
		}
		out = append(out,
			models.PerformanceRecord{Date: d, Name: "Desk Lamp", Category: "Office", Impressions: 1000, Clicks: 50, AdSpend: 10, UnitsSold: 5, Revenue: lamp},
			models.PerformanceRecord{Date: d, Name: "Webcam HD", Category: "Electronics", Impressions: 2000, Clicks: 60, AdSpend: 30, UnitsSold: 6, Revenue: 300},
		)
	}
	return out
}

func newService(src Source) *Service {
	return NewService(src, slog.New(slog.NewTextHandler(io.Discard, nil)), config.Config{})
}

func TestKPIsFilterAndPaginate(t *testing.T) {
	svc := newService(fakeSource{rows: table()})

	rows, err := svc.KPIs(context.Background(), url.Values{"category": {"Office"}, "limit": {"5"}, "offset": {"2"}})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Desk Lamp", rows[0].Name)
	assert.Equal(t, latest.AddDate(0, 0, -25), rows[0].Date)
	assert.Equal(t, 0.05, rows[0].CTR)

	rows, err = svc.KPIs(context.Background(), url.Values{"from": {"2025-08-30"}, "to": {"2025-08-30"}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBadDateIsBadParam(t *testing.T) {
	_, err := newService(fakeSource{rows: table()}).Summary(context.Background(), url.Values{"from": {"30/08/2025"}})
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestSourceErrorIsWrapped(t *testing.T) {
	boom := errors.New("db down")
	_, err := newService(fakeSource{err: boom}).TopSellers(context.Background(), url.Values{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrBadParam)
}

func TestSummaryAndRankings(t *testing.T) {
	svc := newService(fakeSource{rows: table()})
	sum, err := svc.Summary(context.Background(), url.Values{"product": {"Webcam HD"}})
	require.NoError(t, err)
	assert.Equal(t, 28*300.0, sum.TotalRevenue)
	assert.Equal(t, 10.0, sum.AvgROAS)

	top, err := svc.TopSellers(context.Background(), url.Values{"n": {"1"}})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Webcam HD", top[0].Product)

	dod, err := svc.DayOverDay(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, dod, 2)
	assert.Equal(t, "Desk Lamp", dod[0].Product)
}

func TestAnomaliesOverrides(t *testing.T) {
	svc := newService(fakeSource{rows: table()})
	got, err := svc.Anomalies(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Desk Lamp", got[0].Product)
	assert.Equal(t, models.Spike, got[0].Direction)

	got, err = svc.Anomalies(context.Background(), url.Values{"z": {"100"}})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	_, err = svc.Anomalies(context.Background(), url.Values{"window": {"0"}})
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestForecastModels(t *testing.T) {
	svc := newService(fakeSource{rows: table()})

	res, err := svc.Forecast(context.Background(), url.Values{"model": {"ma"}, "days": {"7"}, "product": {"Webcam HD"}})
	require.NoError(t, err)
	assert.Equal(t, "MA(7)", res.Model)
	assert.Len(t, res.Rows, 28+7)
	assert.Equal(t, 300.0, res.Rows[len(res.Rows)-1].Yhat)

	_, err = svc.Forecast(context.Background(), url.Values{"model": {"prophet"}})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = svc.Forecast(context.Background(), url.Values{"days": {"-3"}})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = svc.Forecast(context.Background(), url.Values{"model": {"ma"}, "days": {"100000000"}})
	assert.ErrorIs(t, err, ErrBadParam)

	_, err = svc.Forecast(context.Background(), url.Values{"product": {"Nope"}})
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
}

func TestPromotionLift(t *testing.T) {
	rows := table()
	start := latest.AddDate(0, 0, -3)
	svc := newService(fakeSource{rows: rows, promos: []models.Promotion{
		{ProductID: 2, Product: "Webcam HD", DiscountPercent: 10, StartDate: start, EndDate: latest},
	}})
	lifts, err := svc.Promotions(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, lifts, 1)
	assert.Equal(t, models.PromotionLift{Product: "Webcam HD", BaselineRevenue: 300, PromoRevenue: 300, LiftPercent: 0}, lifts[0])
}

func TestRecommendationsNeverNil(t *testing.T) {
	recs, err := newService(fakeSource{}).Recommendations(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}
