// Package forecast projects daily revenue with an automatically selected
// seasonal ARIMA model and a moving-average baseline.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AngelCh415/perftracker/internal/models"
)

const (
	MinRows     = 10
	DefaultDays = 30
	MaxDays     = 365
	maWindow    = 7
	// two-sided 80% interval
	intervalQuantile = 0.9
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrFitFailed        = errors.New("model fit failed")
	ErrHorizonTooLong   = fmt.Errorf("forecast horizon exceeds %d days", MaxDays)
)

type InsufficientDataError struct {
	Rows int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough data to fit forecast model: got %d rows, need at least %d", e.Rows, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

type FitError struct {
	Model string
	Err   error
}

func (e *FitError) Error() string { return fmt.Sprintf("fit %s: %v", e.Model, e.Err) }

func (e *FitError) Unwrap() error { return e.Err }

func (e *FitError) Is(target error) bool { return target == ErrFitFailed }

// Options selects the series and the horizon. Product wins over Category;
// "" and "All" mean no filter.
type Options struct {
	Days     int
	Product  string
	Category string
}

type Result struct {
	Model string               `json:"model"`
	AIC   float64              `json:"aic,omitempty"`
	Rows  []models.ForecastRow `json:"rows"`
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "all")
}

// dailySeries filters the table and sums revenue per day, oldest first.
func dailySeries(table []models.PerformanceRecord, opts Options) ([]time.Time, []float64) {
	byDay := map[time.Time]float64{}
	for _, r := range table {
		switch {
		case !isAll(opts.Product):
			if r.Name != opts.Product {
				continue
			}
		case !isAll(opts.Category):
			if r.Category != opts.Category {
				continue
			}
		}
		y, m, d := r.Date.UTC().Date()
		byDay[time.Date(y, m, d, 0, 0, 0, 0, time.UTC)] += r.Revenue
	}
	dates := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	ys := make([]float64, len(dates))
	for i, d := range dates {
		ys[i] = byDay[d]
	}
	return dates, ys
}

func prepare(table []models.PerformanceRecord, opts Options) ([]time.Time, []float64, int, error) {
	days := opts.Days
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		return nil, nil, 0, fmt.Errorf("%w: got %d", ErrHorizonTooLong, days)
	}
	dates, ys := dailySeries(table, opts)
	if len(ys) < MinRows {
		return nil, nil, 0, &InsufficientDataError{Rows: len(ys), Need: MinRows}
	}
	return dates, ys, days, nil
}

// Revenue fits a seasonal ARIMA to the daily revenue series and returns the
// history followed by opts.Days forecast rows with 80% bounds.
func Revenue(table []models.PerformanceRecord, opts Options) (Result, error) {
	dates, ys, days, err := prepare(table, opts)
	if err != nil {
		return Result{}, err
	}
	m, err := autoARIMA(ys)
	if err != nil {
		return Result{}, err
	}
	mean, se := m.predict(days)
	z := distuv.UnitNormal.Quantile(intervalQuantile)
	return Result{
		Model: m.order.String(),
		AIC:   m.aic,
		Rows:  assemble(dates, ys, mean, se, z),
	}, nil
}

// MovingAverage projects the trailing 7-day mean flat, with bounds from the
// standard deviation of that last window.
func MovingAverage(table []models.PerformanceRecord, opts Options) (Result, error) {
	dates, ys, days, err := prepare(table, opts)
	if err != nil {
		return Result{}, err
	}
	window := ys[len(ys)-maWindow:]
	mean, std := stat.MeanStdDev(window, nil)
	fc := make([]float64, days)
	se := make([]float64, days)
	for i := range fc {
		fc[i] = mean
		se[i] = std
	}
	z := distuv.UnitNormal.Quantile(intervalQuantile)
	return Result{
		Model: fmt.Sprintf("MA(%d)", maWindow),
		Rows:  assemble(dates, ys, fc, se, z),
	}, nil
}

func assemble(dates []time.Time, ys, fc, se []float64, z float64) []models.ForecastRow {
	rows := make([]models.ForecastRow, 0, len(ys)+len(fc))
	for i, d := range dates {
		rows = append(rows, models.ForecastRow{Date: d, Yhat: ys[i]})
	}
	last := dates[len(dates)-1]
	for i, f := range fc {
		lo, hi := f-z*se[i], f+z*se[i]
		rows = append(rows, models.ForecastRow{
			Date:       last.AddDate(0, 0, i+1),
			Yhat:       f,
			YhatLower:  &lo,
			YhatUpper:  &hi,
			IsForecast: true,
		})
	}
	return rows
}
