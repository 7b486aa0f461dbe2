package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/AngelCh415/perftracker/internal/models"
)

const (
	minBeforeDays = 3
	minDuringDays = 1
)

// AnalyzePromotions measures revenue lift during each promotion window
// against the days strictly before it. Promotions without enough history on
// either side are left out of the result.
func AnalyzePromotions(table []models.PerformanceRecord, promos []models.Promotion) []models.PromotionLift {
	_, groups := groupByProduct(table)
	out := make([]models.PromotionLift, 0, len(promos))
	for _, p := range promos {
		start, end := dayUTC(p.StartDate), dayUTC(p.EndDate)
		var before, during []float64
		for _, r := range groups[p.Product] {
			d := dayUTC(r.Date)
			switch {
			case d.Before(start):
				before = append(before, r.Revenue)
			case !d.After(end):
				during = append(during, r.Revenue)
			}
		}
		if len(before) < minBeforeDays || len(during) < minDuringDays {
			continue
		}
		baseline := stat.Mean(before, nil)
		promo := stat.Mean(during, nil)
		var lift float64
		if baseline != 0 {
			lift = (promo - baseline) / baseline
		}
		out = append(out, models.PromotionLift{
			Product:         p.Product,
			BaselineRevenue: Round(baseline, 2),
			PromoRevenue:    Round(promo, 2),
			LiftPercent:     Round(lift*100, 2),
		})
	}
	return out
}
