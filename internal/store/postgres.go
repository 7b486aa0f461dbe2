package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AngelCh415/perftracker/internal/models"
)

// DatabasePool is the subset of *pgxpool.Pool the store needs.
type DatabasePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db    DatabasePool
	close func()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
    id       INTEGER PRIMARY KEY,
    name     TEXT NOT NULL,
    price    NUMERIC(10,2) NOT NULL,
    category TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_performance (
    date        DATE NOT NULL,
    product_id  INTEGER NOT NULL REFERENCES products(id),
    impressions INTEGER NOT NULL,
    clicks      INTEGER NOT NULL,
    ad_spend    DOUBLE PRECISION NOT NULL,
    units_sold  INTEGER NOT NULL,
    revenue     DOUBLE PRECISION NOT NULL,
    UNIQUE (date, product_id)
);
CREATE TABLE IF NOT EXISTS promotions (
    product_id       INTEGER PRIMARY KEY REFERENCES products(id),
    discount_percent DOUBLE PRECISION NOT NULL,
    start_date       DATE NOT NULL,
    end_date         DATE NOT NULL
);`

const tableSQL = `
SELECT dp.date, p.id, p.name, p.category,
       dp.impressions, dp.clicks,
       dp.ad_spend, dp.units_sold, dp.revenue
FROM daily_performance dp
JOIN products p ON dp.product_id = p.id
ORDER BY dp.date, p.name`

const promotionsSQL = `
SELECT pr.product_id, p.name, pr.discount_percent, pr.start_date, pr.end_date
FROM promotions pr
JOIN products p ON pr.product_id = p.id
ORDER BY pr.product_id`

const upsertProductSQL = `
INSERT INTO products (id, name, price, category)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category`

const insertPerformanceSQL = `
INSERT INTO daily_performance (date, product_id, impressions, clicks, ad_spend, units_sold, revenue)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (date, product_id) DO NOTHING`

const upsertPromotionSQL = `
INSERT INTO promotions (product_id, discount_percent, start_date, end_date)
VALUES ($1, $2, $3, $4)
ON CONFLICT (product_id) DO UPDATE SET discount_percent = EXCLUDED.discount_percent,
    start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`

func NewPostgresStore(db DatabasePool) *PostgresStore {
	return &PostgresStore{db: db, close: func() {}}
}

// OpenPostgres connects a pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: pool, close: pool.Close}, nil
}

func (s *PostgresStore) Close() { s.close() }

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Table(ctx context.Context) ([]models.PerformanceRecord, error) {
	rows, err := s.db.Query(ctx, tableSQL)
	if err != nil {
		return nil, fmt.Errorf("query daily performance: %w", err)
	}
	defer rows.Close()

	var out []models.PerformanceRecord
	for rows.Next() {
		var r models.PerformanceRecord
		if err := rows.Scan(&r.Date, &r.ProductID, &r.Name, &r.Category,
			&r.Impressions, &r.Clicks, &r.AdSpend, &r.UnitsSold, &r.Revenue); err != nil {
			return nil, fmt.Errorf("scan daily performance: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily performance: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Promotions(ctx context.Context) ([]models.Promotion, error) {
	rows, err := s.db.Query(ctx, promotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	var out []models.Promotion
	for rows.Next() {
		var p models.Promotion
		if err := rows.Scan(&p.ProductID, &p.Product, &p.DiscountPercent, &p.StartDate, &p.EndDate); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveProducts(ctx context.Context, ps []models.Product) error {
	for _, p := range ps {
		if _, err := s.db.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category); err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}
	return nil
}

// SavePerformance inserts rows, ignoring days already loaded. It returns the
// number of new rows.
func (s *PostgresStore) SavePerformance(ctx context.Context, rows []models.PerformanceRecord) (int, error) {
	n := 0
	for _, r := range rows {
		r = normalize(r)
		tag, err := s.db.Exec(ctx, insertPerformanceSQL,
			r.Date, r.ProductID, r.Impressions, r.Clicks, r.AdSpend, r.UnitsSold, r.Revenue)
		if err != nil {
			return n, fmt.Errorf("insert performance %s/%d: %w", r.Date.Format("2006-01-02"), r.ProductID, err)
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

func (s *PostgresStore) SavePromotions(ctx context.Context, ps []models.Promotion) error {
	for _, p := range ps {
		if _, err := s.db.Exec(ctx, upsertPromotionSQL, p.ProductID, p.DiscountPercent, p.StartDate, p.EndDate); err != nil {
			return fmt.Errorf("upsert promotion %d: %w", p.ProductID, err)
		}
	}
	return nil
}
