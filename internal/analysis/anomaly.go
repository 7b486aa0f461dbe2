package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/AngelCh415/perftracker/internal/models"
)

const minAnomalyHistory = 14

type AnomalyOptions struct {
	ZThreshold float64
	WindowDays int
}

func DefaultAnomalyOptions() AnomalyOptions {
	return AnomalyOptions{ZThreshold: 1.8, WindowDays: 7}
}

// DetectAnomalies flags recent days whose revenue is more than ZThreshold
// standard deviations away from the product's historical mean.
//
// The recent window ends at the latest date of the whole table, not at each
// product's own latest date. Products with fewer than 14 rows or a flat
// revenue history are skipped. Results are ordered by |z| descending.
func DetectAnomalies(table []models.PerformanceRecord, opts AnomalyOptions) []models.Anomaly {
	if len(table) == 0 {
		return nil
	}
	if opts.ZThreshold <= 0 {
		opts.ZThreshold = DefaultAnomalyOptions().ZThreshold
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultAnomalyOptions().WindowDays
	}
	cutoff := dayUTC(latestDate(table)).AddDate(0, 0, -(opts.WindowDays - 1))

	var out []models.Anomaly
	names, groups := groupByProduct(table)
	for _, name := range names {
		rows := groups[name]
		if len(rows) < minAnomalyHistory {
			continue
		}
		revenue := make([]float64, len(rows))
		for i, r := range rows {
			revenue[i] = r.Revenue
		}
		mean, std := stat.MeanStdDev(revenue, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for _, r := range rows {
			if dayUTC(r.Date).Before(cutoff) {
				continue
			}
			z := (r.Revenue - mean) / std
			if math.Abs(z) <= opts.ZThreshold {
				continue
			}
			dir := models.Drop
			if z > 0 {
				dir = models.Spike
			}
			out = append(out, models.Anomaly{
				Product:      name,
				Category:     r.Category,
				Date:         r.Date,
				Revenue:      r.Revenue,
				ExpectedMean: mean,
				ExpectedStd:  std,
				ZScore:       z,
				Direction:    dir,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].ZScore) > math.Abs(out[j].ZScore) })
	return out
}
