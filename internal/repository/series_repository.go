package repository

import (
	"context"
	"errors"
	"time"

	"tickerbar/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeriesRepository archives close-price series and published ticks in
// Postgres. The schema is owned by cmd/migrate.
type SeriesRepository struct {
	pool   PgxPool
	tracer trace.Tracer
	now    func() time.Time
}

func NewSeriesRepository(pool PgxPool, tracer trace.Tracer) *SeriesRepository {
	return &SeriesRepository{pool: pool, tracer: tracer, now: time.Now}
}

// UpsertSeries replaces the stored series for (symbol, period).
func (r *SeriesRepository) UpsertSeries(ctx context.Context, symbol string, period domain.Period, closes []float64) error {
	if len(closes) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "series-repo.upsert-series")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("period", period.String()))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO price_series (symbol, period, closes, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (symbol, period) DO UPDATE SET
		     closes = EXCLUDED.closes,
		     updated_at = EXCLUDED.updated_at`,
		symbol, string(period), closes, r.now().UTC(),
	)
	return err
}

// GetSeries returns the archived series for (symbol, period), or nil when
// nothing has been stored yet.
func (r *SeriesRepository) GetSeries(ctx context.Context, symbol string, period domain.Period) ([]float64, error) {
	ctx, span := r.tracer.Start(ctx, "series-repo.get-series")
	defer span.End()

	var closes []float64
	err := r.pool.QueryRow(ctx,
		`SELECT closes FROM price_series WHERE symbol = $1 AND period = $2`,
		symbol, string(period),
	).Scan(&closes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return closes, nil
}

// RecordTicks appends ticks to the tick log in one batch.
func (r *SeriesRepository) RecordTicks(ctx context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "series-repo.record-ticks")
	defer span.End()
	span.SetAttributes(attribute.Int("ticks", len(ticks)))

	observedAt := r.now().UTC()
	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(
			`INSERT INTO price_ticks (symbol, price, observed_at) VALUES ($1, $2, $3)`,
			t.Symbol, t.Price, observedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ticks {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
