// Package metrics answers analysis queries over the loaded performance table.
// Query parameters arrive as url.Values straight from the HTTP layer.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/perftracker/internal/analysis"
	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/forecast"
	"github.com/AngelCh415/perftracker/internal/models"
	"github.com/AngelCh415/perftracker/internal/utils"
)

// ErrBadParam marks a malformed query parameter.
var ErrBadParam = errors.New("bad parameter")

// Source is where the table and the promotion windows come from.
type Source interface {
	Table(ctx context.Context) ([]models.PerformanceRecord, error)
	Promotions(ctx context.Context) ([]models.Promotion, error)
}

type Service struct {
	src          Source
	log          *slog.Logger
	zThreshold   float64
	windowDays   int
	forecastDays int
}

func NewService(src Source, log *slog.Logger, cfg config.Config) *Service {
	s := &Service{src: src, log: log, zThreshold: cfg.ZThreshold, windowDays: cfg.WindowDays, forecastDays: cfg.ForecastDays}
	def := analysis.DefaultAnomalyOptions()
	if s.zThreshold <= 0 {
		s.zThreshold = def.ZThreshold
	}
	if s.windowDays <= 0 {
		s.windowDays = def.WindowDays
	}
	if s.forecastDays <= 0 {
		s.forecastDays = forecast.DefaultDays
	}
	return s
}

// table loads the table and applies the product, category, from and to
// filters shared by every query.
func (s *Service) table(ctx context.Context, v url.Values) ([]models.PerformanceRecord, error) {
	from, err := dateParam(v, "from")
	if err != nil {
		return nil, err
	}
	to, err := dateParam(v, "to")
	if err != nil {
		return nil, err
	}
	all, err := s.src.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	rows := analysis.FilterTable(all, v.Get("product"), v.Get("category"))
	if from.IsZero() && to.IsZero() {
		return rows, nil
	}
	out := rows[:0:0]
	for _, r := range rows {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) KPIs(ctx context.Context, v url.Values) ([]models.KPIRow, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	kpis := analysis.CalculateKPIs(rows)
	limit, offset := clampLimitOffset(atoiDef(v.Get("limit"), 100), atoiDef(v.Get("offset"), 0), len(kpis))
	return paginate(kpis, limit, offset), nil
}

func (s *Service) Summary(ctx context.Context, v url.Values) (models.KPISummary, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return models.KPISummary{}, err
	}
	return analysis.Summarize(rows), nil
}

func (s *Service) TopSellers(ctx context.Context, v url.Values) ([]models.ProductValue, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("top_sellers", analysis.TopSellers(rows, atoiDef(v.Get("n"), 5))), nil
}

func (s *Service) WorstPerformers(ctx context.Context, v url.Values) ([]models.ProductValue, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("worst_performers", analysis.WorstPerformers(rows, atoiDef(v.Get("n"), 5))), nil
}

func (s *Service) DayOverDay(ctx context.Context, v url.Values) ([]models.ProductValue, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("day_over_day", analysis.DayOverDayChange(rows)), nil
}

func (s *Service) WeekOverWeek(ctx context.Context, v url.Values) ([]models.RevenueChange, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("week_over_week", analysis.WeekOverWeekChange(rows)), nil
}

func (s *Service) Anomalies(ctx context.Context, v url.Values) ([]models.Anomaly, error) {
	opts := analysis.AnomalyOptions{ZThreshold: s.zThreshold, WindowDays: s.windowDays}
	if q := v.Get("z"); q != "" {
		z, err := strconv.ParseFloat(q, 64)
		if err != nil || z <= 0 {
			return nil, fmt.Errorf("%w: z must be a positive number", ErrBadParam)
		}
		opts.ZThreshold = z
	}
	if q := v.Get("window"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: window must be a positive integer", ErrBadParam)
		}
		opts.WindowDays = n
	}
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("anomalies", analysis.DetectAnomalies(rows, opts)), nil
}

// Forecast fits the seasonal model unless model=ma is asked for. When the
// fit fails it answers with the moving-average baseline instead.
func (s *Service) Forecast(ctx context.Context, v url.Values) (forecast.Result, error) {
	opts := forecast.Options{Days: s.forecastDays, Product: v.Get("product"), Category: v.Get("category")}
	if q := v.Get("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > forecast.MaxDays {
			return forecast.Result{}, fmt.Errorf("%w: days must be an integer in [1, %d]", ErrBadParam, forecast.MaxDays)
		}
		opts.Days = n
	}
	all, err := s.src.Table(ctx)
	if err != nil {
		return forecast.Result{}, fmt.Errorf("load table: %w", err)
	}

	switch strings.ToLower(v.Get("model")) {
	case "ma", "moving_average":
		return forecast.MovingAverage(all, opts)
	case "", "arima", "auto":
	default:
		return forecast.Result{}, fmt.Errorf("%w: model must be arima or ma", ErrBadParam)
	}

	res, err := forecast.Revenue(all, opts)
	if errors.Is(err, forecast.ErrFitFailed) {
		utils.ForecastFallbacks.Inc()
		s.log.Warn("forecast fit failed, using moving average", slog.String("err", err.Error()))
		return forecast.MovingAverage(all, opts)
	}
	return res, err
}

func (s *Service) Recommendations(ctx context.Context, v url.Values) ([]models.Recommendation, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	return record("recommendations", analysis.GenerateRecommendations(rows)), nil
}

func (s *Service) Promotions(ctx context.Context, v url.Values) ([]models.PromotionLift, error) {
	rows, err := s.table(ctx, v)
	if err != nil {
		return nil, err
	}
	promos, err := s.src.Promotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	return record("promotions", analysis.AnalyzePromotions(rows, promos)), nil
}

func record[T any](name string, rows []T) []T {
	utils.AnalysisResults.WithLabelValues(name).Set(float64(len(rows)))
	if rows == nil {
		return []T{}
	}
	return rows
}

func dateParam(v url.Values, key string) (time.Time, error) {
	q := strings.TrimSpace(v.Get(key))
	if q == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", q)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrBadParam, key)
	}
	return t, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
