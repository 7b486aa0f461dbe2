package models

import "time"

// Product as served by the ads API catalog.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// DailyPerformance is the raw per-product row returned by the ads API.
type DailyPerformance struct {
	ProductID   int     `json:"product_id"`
	Date        string  `json:"date"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	AdSpend     float64 `json:"ad_spend"`
	UnitsSold   int     `json:"units_sold"`
	Revenue     float64 `json:"revenue"`
}

// PerformanceRecord is one row of the normalized metrics table:
// a single product on a single day.
type PerformanceRecord struct {
	ProductID   int       `json:"product_id,omitempty"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Impressions int       `json:"impressions"`
	Clicks      int       `json:"clicks"`
	AdSpend     float64   `json:"ad_spend"`
	UnitsSold   int       `json:"units_sold"`
	Revenue     float64   `json:"revenue"`
}

type RecordKey struct {
	Date    time.Time
	Product string
}

func (r PerformanceRecord) Key() RecordKey { return RecordKey{Date: r.Date, Product: r.Name} }

type KPIRow struct {
	PerformanceRecord
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
	ROAS           float64 `json:"roas"`
	ACOS           float64 `json:"acos"`
	CPC            float64 `json:"cpc"`
}

type KPISummary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalAdSpend      float64 `json:"total_ad_spend"`
	TotalClicks       int     `json:"total_clicks"`
	TotalImpressions  int     `json:"total_impressions"`
	TotalUnitsSold    int     `json:"total_units_sold"`
	AvgROAS           float64 `json:"avg_roas"`
	AvgACOS           float64 `json:"avg_acos"`
	AvgCTR            float64 `json:"avg_ctr"`
	AvgCPC            float64 `json:"avg_cpc"`
	AvgConversionRate float64 `json:"avg_conversion_rate"`
	RevenuePerUnit    float64 `json:"revenue_per_unit"`
}

type ProductValue struct {
	Product string  `json:"product"`
	Value   float64 `json:"value"`
}

type RevenueChange struct {
	Product   string  `json:"product"`
	ThisWeek  float64 `json:"this_week"`
	LastWeek  float64 `json:"last_week"`
	ChangePct float64 `json:"change_pct"`
}

type Direction string

const (
	Spike Direction = "spike"
	Drop  Direction = "drop"
)

type Anomaly struct {
	Product      string    `json:"product"`
	Category     string    `json:"category"`
	Date         time.Time `json:"date"`
	Revenue      float64   `json:"revenue"`
	ExpectedMean float64   `json:"expected_mean"`
	ExpectedStd  float64   `json:"expected_std"`
	ZScore       float64   `json:"z_score"`
	Direction    Direction `json:"direction"`
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Rank orders severities for display: warnings first.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 0
	case SeverityInfo:
		return 1
	case SeveritySuccess:
		return 2
	}
	return 9
}

type Recommendation struct {
	Product  string   `json:"product"`
	Category string   `json:"category"`
	Alert    string   `json:"alert"`
	Icon     string   `json:"icon"`
	Severity Severity `json:"severity"`
	Metric   string   `json:"metric"`
	ThisWeek float64  `json:"this_week"`
	LastWeek *float64 `json:"last_week"` // nil: no prior week
	Trend    string   `json:"trend"`
	Action   string   `json:"action"`
}

type ForecastRow struct {
	Date       time.Time `json:"ds"`
	Yhat       float64   `json:"yhat"`
	YhatLower  *float64  `json:"yhat_lower"`
	YhatUpper  *float64  `json:"yhat_upper"`
	IsForecast bool      `json:"is_forecast"`
}

// PromotionFeed is a discount window as returned by the ads API.
type PromotionFeed struct {
	ProductID       int     `json:"product_id"`
	DiscountPercent float64 `json:"discount_percent"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
}

type Promotion struct {
	ProductID       int       `json:"product_id"`
	Product         string    `json:"product"`
	DiscountPercent float64   `json:"discount_percent"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

type PromotionLift struct {
	Product         string  `json:"product"`
	BaselineRevenue float64 `json:"baseline_revenue"`
	PromoRevenue    float64 `json:"promo_revenue"`
	LiftPercent     float64 `json:"lift_percent"`
}
