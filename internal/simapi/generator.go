package simapi

import (
	"math"
	"math/rand"
	"time"

	"github.com/AngelCh415/perftracker/internal/analysis"
	"github.com/AngelCh415/perftracker/internal/models"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var weekly = map[time.Weekday]float64{
	time.Monday:    0.88,
	time.Tuesday:   0.95,
	time.Wednesday: 1.00,
	time.Thursday:  1.02,
	time.Friday:    1.05,
	time.Saturday:  1.25,
	time.Sunday:    1.20,
}

// Generator produces reproducible daily metrics: the same seed, product and
// day always yield the same row.
type Generator struct {
	seed int64
}

func NewGenerator(seed int64) *Generator { return &Generator{seed: seed} }

func (g *Generator) rng(productID int, day time.Time) *rand.Rand {
	return rand.New(rand.NewSource(g.seed ^ int64(productID)<<32 ^ day.Unix()))
}

// Daily builds one product's metrics for day. Demand combines growth since
// 2025-01-01, weekday and month seasonality, bounded gaussian noise and a
// rare campaign spike.
func (g *Generator) Daily(p models.Product, day time.Time) models.DailyPerformance {
	day = truncDay(day)
	prof := profiles[p.ID]
	r := g.rng(p.ID, day)

	trend := 1 + prof.growth*day.Sub(epoch).Hours()/24
	monthly := 1 + 0.10*math.Sin(float64(day.Day())/31*2*math.Pi-math.Pi/2)
	noise := clamp(1+r.NormFloat64()*prof.volatility, 0.80, 1.20)
	spike := 1.0
	if r.Float64() < 0.03 {
		spike = 1.25 + r.Float64()*0.25
	}
	mult := trend * weekly[day.Weekday()] * monthly * noise * spike

	impressions := int(prof.base * 20 * mult)
	if impressions < 500 {
		impressions = 500
	}
	baseCTR := 0.025 + float64(p.ID%5)*0.004
	ctr := clamp(baseCTR+r.NormFloat64()*0.003, 0.010, 0.08)
	clicks := int(float64(impressions) * ctr)

	baseCR := 0.10 + float64(p.ID%4)*0.02
	cr := clamp(baseCR+r.NormFloat64()*0.015, 0.05, 0.30)
	units := int(float64(clicks) * cr)

	spend := analysis.Round(float64(clicks)*(0.55+r.NormFloat64()*0.05), 2)
	if spend < 0 {
		spend = 0
	}
	return models.DailyPerformance{
		ProductID:   p.ID,
		Date:        day.Format("2006-01-02"),
		Impressions: impressions,
		Clicks:      clicks,
		AdSpend:     spend,
		UnitsSold:   units,
		Revenue:     analysis.Round(float64(units)*p.Price, 2),
	}
}

// Range returns rows for today and the daysBack days before it, newest day
// first, every product per day.
func (g *Generator) Range(today time.Time, daysBack int) []models.DailyPerformance {
	today = truncDay(today)
	out := make([]models.DailyPerformance, 0, (daysBack+1)*len(catalog))
	for i := 0; i <= daysBack; i++ {
		d := today.AddDate(0, 0, -i)
		for _, p := range catalog {
			out = append(out, g.Daily(p, d))
		}
	}
	return out
}

func promotions(today time.Time) []models.PromotionFeed {
	today = truncDay(today)
	out := make([]models.PromotionFeed, 0, len(promoPlans))
	for _, pp := range promoPlans {
		start := today.AddDate(0, 0, -pp.startAgo)
		out = append(out, models.PromotionFeed{
			ProductID:       pp.productID,
			DiscountPercent: pp.discount,
			StartDate:       start.Format("2006-01-02"),
			EndDate:         start.AddDate(0, 0, pp.length-1).Format("2006-01-02"),
		})
	}
	return out
}

func truncDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
