package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/perftracker/internal/analysis"
	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/models"
	"github.com/AngelCh415/perftracker/internal/utils"
)

// Sink receives the loaded rows. Both the memory and the Postgres store
// implement it.
type Sink interface {
	SaveProducts(ctx context.Context, ps []models.Product) error
	SavePerformance(ctx context.Context, rows []models.PerformanceRecord) (int, error)
	SavePromotions(ctx context.Context, ps []models.Promotion) error
}

type Store interface {
	Sink
	Table(ctx context.Context) ([]models.PerformanceRecord, error)
}

type ETL struct {
	c     HTTPClient
	st    Store
	log   *slog.Logger
	cfg   config.Config
	retry utils.Backoff
}

func NewETL(c HTTPClient, st Store, log *slog.Logger, cfg config.Config) *ETL {
	return &ETL{c: c, st: st, log: log, cfg: cfg, retry: utils.NewBackoff(cfg.RetryBase, cfg.MaxRetries)}
}

// Report summarizes one ETL run.
type Report struct {
	Products   int `json:"products"`
	Fetched    int `json:"fetched"`
	Loaded     int `json:"loaded"`
	Promotions int `json:"promotions"`
}

// categoryMultiplier is the small per-category adjustment applied to units
// sold and revenue on load.
func categoryMultiplier(category string) float64 {
	switch category {
	case "Electronics":
		return 1.08
	case "Audio":
		return 1.05
	case "Office":
		return 0.97
	}
	return 1.0
}

func (e *ETL) url(path string) string {
	return strings.TrimRight(e.cfg.APIBaseURL, "/") + path
}

func (e *ETL) Run(ctx context.Context, since *time.Time) (Report, error) {
	rep, err := e.run(ctx, since)
	if err != nil {
		utils.ETLRuns.WithLabelValues("error").Inc()
		return rep, err
	}
	utils.ETLRuns.WithLabelValues("ok").Inc()
	utils.ETLRecords.Add(float64(rep.Loaded))
	return rep, nil
}

func (e *ETL) run(ctx context.Context, since *time.Time) (Report, error) {
	var rep Report

	// Productos
	var products []models.Product
	if err := GetJSONWithRetry(ctx, e.c, e.url("/products"), &products, e.retry); err != nil {
		return rep, fmt.Errorf("fetch products: %w", err)
	}
	if err := e.st.SaveProducts(ctx, products); err != nil {
		return rep, fmt.Errorf("load products: %w", err)
	}
	rep.Products = len(products)
	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Performance diaria
	var raw []models.DailyPerformance
	perfURL := fmt.Sprintf("%s?days_back=%d", e.url("/daily-performance"), e.cfg.DaysBack)
	if err := GetJSONWithRetry(ctx, e.c, perfURL, &raw, e.retry); err != nil {
		return rep, fmt.Errorf("fetch daily performance: %w", err)
	}
	rep.Fetched = len(raw)
	rows := e.transform(raw, byID, since)
	n, err := e.st.SavePerformance(ctx, rows)
	if err != nil {
		return rep, fmt.Errorf("load daily performance: %w", err)
	}
	rep.Loaded = n

	// Promociones: opcionales, un fallo no aborta la corrida
	var feed []models.PromotionFeed
	if err := GetJSONWithRetry(ctx, e.c, e.url("/promotions"), &feed, e.retry); err != nil {
		e.log.Warn("promotions unavailable", slog.String("err", err.Error()))
	} else {
		promos := e.promotions(feed, byID)
		if err := e.st.SavePromotions(ctx, promos); err != nil {
			return rep, fmt.Errorf("load promotions: %w", err)
		}
		rep.Promotions = len(promos)
	}

	e.log.Info("ingest complete",
		slog.Int("products", rep.Products),
		slog.Int("fetched", rep.Fetched),
		slog.Int("loaded", rep.Loaded),
		slog.Int("promotions", rep.Promotions))
	return rep, nil
}

func (e *ETL) transform(raw []models.DailyPerformance, byID map[int]models.Product, since *time.Time) []models.PerformanceRecord {
	seen := make(map[models.RecordKey]struct{}, len(raw))
	out := make([]models.PerformanceRecord, 0, len(raw))
	for _, r := range raw {
		p, ok := byID[r.ProductID]
		if !ok {
			e.log.Debug("skip row for unknown product", slog.Int("product_id", r.ProductID))
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			e.log.Debug("skip row with bad date", slog.String("date", r.Date))
			continue
		}
		if since != nil && d.Before(dayUTC(*since)) {
			continue
		}
		rec := models.PerformanceRecord{
			ProductID:   p.ID,
			Date:        d,
			Name:        p.Name,
			Category:    p.Category,
			Impressions: max0(r.Impressions),
			Clicks:      max0(r.Clicks),
			AdSpend:     maxf(r.AdSpend),
			UnitsSold:   max0(r.UnitsSold),
			Revenue:     maxf(r.Revenue),
		}
		if _, dup := seen[rec.Key()]; dup {
			continue
		} // idempotencia por-record
		seen[rec.Key()] = struct{}{}

		m := categoryMultiplier(p.Category)
		rec.UnitsSold = int(float64(rec.UnitsSold) * m)
		rec.Revenue = analysis.Round(rec.Revenue*m, 2)
		out = append(out, rec)
	}
	return out
}

func (e *ETL) promotions(feed []models.PromotionFeed, byID map[int]models.Product) []models.Promotion {
	out := make([]models.Promotion, 0, len(feed))
	taken := make(map[int]struct{}, len(feed))
	for _, f := range feed {
		p, ok := byID[f.ProductID]
		if !ok {
			continue
		}
		if _, dup := taken[p.ID]; dup {
			continue
		} // una ventana por producto: gana la primera del feed
		start, err1 := time.Parse("2006-01-02", f.StartDate)
		end, err2 := time.Parse("2006-01-02", f.EndDate)
		if err1 != nil || err2 != nil || end.Before(start) {
			e.log.Debug("skip invalid promotion", slog.Int("product_id", f.ProductID))
			continue
		}
		taken[p.ID] = struct{}{}
		out = append(out, models.Promotion{
			ProductID:       p.ID,
			Product:         p.Name,
			DiscountPercent: f.DiscountPercent,
			StartDate:       start,
			EndDate:         end,
		})
	}
	return out
}

// ExportDay posts the KPI rows of one day to the configured sink. The body
// is signed with HMAC-SHA256 of SINK_SECRET in X-Signature.
func (e *ETL) ExportDay(ctx context.Context, date time.Time) (int, error) {
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, errors.New("sink not configured")
	}
	table, err := e.st.Table(ctx)
	if err != nil {
		return 0, err
	}
	day := dayUTC(date)
	var dayRows []models.PerformanceRecord
	for _, r := range table {
		if dayUTC(r.Date).Equal(day) {
			dayRows = append(dayRows, r)
		}
	}
	if len(dayRows) == 0 {
		return 0, nil
	}
	rows := roundKPIs(analysis.CalculateKPIs(dayRows))

	b, err := json.Marshal(rows) // exportamos arreglo
	if err != nil {
		return 0, err
	}
	mac := hmac.New(sha256.New, []byte(e.cfg.SinkSecret))
	mac.Write(b)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return 0, fmt.Errorf("export sink: %w", err)
	}
	return len(rows), nil
}

func roundKPIs(rows []models.KPIRow) []models.KPIRow {
	for i := range rows {
		r := &rows[i]
		r.AdSpend = analysis.Round(r.AdSpend, 2)
		r.Revenue = analysis.Round(r.Revenue, 2)
		r.CPC = analysis.Round(r.CPC, 3)
		r.CTR = analysis.Round(r.CTR, 4)
		r.ConversionRate = analysis.Round(r.ConversionRate, 4)
		r.ROAS = analysis.Round(r.ROAS, 2)
		r.ACOS = analysis.Round(r.ACOS, 4)
	}
	return rows
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}
