package store

import (
	"context"
	"log/slog"

	"github.com/AngelCh415/perftracker/internal/models"
)

// Store is what the binaries wire: a load target that also serves the table
// and the promotion windows back.
type Store interface {
	SaveProducts(ctx context.Context, ps []models.Product) error
	SavePerformance(ctx context.Context, rows []models.PerformanceRecord) (int, error)
	SavePromotions(ctx context.Context, ps []models.Promotion) error
	Table(ctx context.Context) ([]models.PerformanceRecord, error)
	Promotions(ctx context.Context) ([]models.Promotion, error)
}

// Open returns a Postgres store with its schema in place when databaseURL is
// set and the in-memory store otherwise. The returned func releases it.
func Open(ctx context.Context, databaseURL string, log *slog.Logger) (Store, func(), error) {
	if databaseURL == "" {
		log.Info("no database configured, using in-memory store")
		return NewMemoryStore(), func() {}, nil
	}
	pg, err := OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	log.Info("connected to postgres")
	return pg, pg.Close, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
