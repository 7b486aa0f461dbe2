package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/perftracker/internal/models"
)

type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[models.RecordKey]models.PerformanceRecord
	products map[int]models.Product
	promos   map[int]models.Promotion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[models.RecordKey]models.PerformanceRecord),
		products: make(map[int]models.Product),
		promos:   make(map[int]models.Promotion),
	}
}

// Upsert stores r, replacing any row for the same day and product.
func (s *MemoryStore) Upsert(r models.PerformanceRecord) {
	r = normalize(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.Key()] = r
}

// Insert stores r unless the day/product pair already exists.
func (s *MemoryStore) Insert(r models.PerformanceRecord) bool {
	r = normalize(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.Key()]; ok {
		return false
	}
	s.rows[r.Key()] = r
	return true
}

func (s *MemoryStore) SaveProducts(_ context.Context, ps []models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.products[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) SavePerformance(_ context.Context, rows []models.PerformanceRecord) (int, error) {
	n := 0
	for _, r := range rows {
		if s.Insert(r) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) SavePromotions(_ context.Context, ps []models.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.promos[p.ProductID] = p
	}
	return nil
}

func (s *MemoryStore) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns a copy of every row ordered by date, then product.
func (s *MemoryStore) All() []models.PerformanceRecord {
	return s.Query(time.Time{}, time.Time{}, nil)
}

// Query returns rows in [from, to]; a zero bound is open.
func (s *MemoryStore) Query(from, to time.Time, f func(models.PerformanceRecord) bool) []models.PerformanceRecord {
	s.mu.RLock()
	out := make([]models.PerformanceRecord, 0, len(s.rows))
	for _, v := range s.rows {
		if !from.IsZero() && v.Date.Before(day(from)) {
			continue
		}
		if !to.IsZero() && v.Date.After(day(to)) {
			continue
		}
		if f == nil || f(v) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	sortRecords(out)
	return out
}

func (s *MemoryStore) Table(context.Context) ([]models.PerformanceRecord, error) {
	return s.All(), nil
}

func (s *MemoryStore) Promotions(context.Context) ([]models.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Promotion, 0, len(s.promos))
	for _, p := range s.promos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func sortRecords(rows []models.PerformanceRecord) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Name < rows[j].Name
	})
}

func normalize(r models.PerformanceRecord) models.PerformanceRecord {
	r.Date = day(r.Date)
	r.Impressions = max0(r.Impressions)
	r.Clicks = max0(r.Clicks)
	r.UnitsSold = max0(r.UnitsSold)
	r.AdSpend = maxf(r.AdSpend)
	r.Revenue = maxf(r.Revenue)
	return r
}

func day(t time.Time) time.Time {
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
	if f < 0 {
		return 0
	}
	return f
}
