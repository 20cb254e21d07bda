package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tickerbar/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	priceCacheTTL  = 90 * time.Second
	seriesCacheTTL = 6 * time.Hour
)

// PriceProvider is the upstream market data source.
type PriceProvider interface {
	FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error)
	FetchSeries(ctx context.Context, symbol string, period domain.Period) ([]float64, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SeriesArchive is durable storage behind the Redis cache.
type SeriesArchive interface {
	UpsertSeries(ctx context.Context, symbol string, period domain.Period, closes []float64) error
	GetSeries(ctx context.Context, symbol string, period domain.Period) ([]float64, error)
	RecordTicks(ctx context.Context, ticks []domain.Tick) error
}

// FeedService serves the snapshot and series payloads consumed by terminal
// clients. Redis is optional; without it every read goes to the provider.
type FeedService struct {
	tracer   trace.Tracer
	provider PriceProvider
	redis    RedisClient
	archive  SeriesArchive
	logger   *logrus.Entry

	mu   sync.Mutex
	last map[string]float64
}

func NewFeedService(
	tracer trace.Tracer,
	provider PriceProvider,
	redisClient RedisClient,
	logger *logrus.Logger,
) *FeedService {
	return &FeedService{
		tracer:   tracer,
		provider: provider,
		redis:    redisClient,
		logger:   logger.WithField("component", "feed-service"),
		last:     make(map[string]float64),
	}
}

// WithArchive attaches a Postgres archive. Series are written through to it
// and read back when both Redis and the provider come up empty.
func (s *FeedService) WithArchive(archive SeriesArchive) *FeedService {
	s.archive = archive
	return s
}

// GetMarkets returns the latest USD price of every tracked currency. Cached
// entries are used where present; one batched provider call fills the rest.
func (s *FeedService) GetMarkets(ctx context.Context) (domain.MarketSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "feed-service.get-markets")
	defer span.End()

	markets := make(domain.MarketSnapshot, len(domain.Currencies))
	missing := false

	for _, symbol := range domain.Currencies {
		cached, err := s.getPriceCache(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("redis cache read error")
		}
		if cached == nil {
			missing = true
			continue
		}
		markets[symbol] = cached.PriceUSD
	}

	if !missing {
		return markets, nil
	}

	prices, err := s.provider.FetchPrices(ctx)
	if err != nil {
		if len(markets) > 0 {
			s.logger.WithError(err).Warn("serving partial market snapshot from cache")
			return markets, nil
		}
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	for symbol, snap := range prices {
		_ = s.setPriceCache(ctx, snap)
		markets[symbol] = snap.PriceUSD
	}
	return markets, nil
}

// GetSeries returns one close-price series per tracked currency for period.
// All series are trimmed to a common length, keeping the newest samples.
func (s *FeedService) GetSeries(ctx context.Context, period domain.Period) (domain.PriceSeries, error) {
	ctx, span := s.tracer.Start(ctx, "feed-service.get-series")
	defer span.End()
	span.SetAttributes(attribute.String("period", period.String()))

	if !period.Valid() {
		return nil, fmt.Errorf("unsupported period: %s", period)
	}

	series := make(domain.PriceSeries, len(domain.Currencies))
	var errs []error

	for _, symbol := range domain.Currencies {
		cached, err := s.getSeriesCache(ctx, period, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("redis cache read error")
		}
		if len(cached) > 0 {
			series[symbol] = cached
			continue
		}

		fetched, err := s.provider.FetchSeries(ctx, symbol, period)
		if err != nil {
			if archived := s.getArchivedSeries(ctx, period, symbol); len(archived) > 0 {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("serving archived series")
				series[symbol] = archived
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		if len(fetched) == 0 {
			continue
		}
		s.setSeriesCache(ctx, period, symbol, fetched)
		s.archiveSeries(ctx, period, symbol, fetched)
		series[symbol] = fetched
	}

	if len(series) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("fetch series: %w", errors.Join(errs...))
	}
	for _, err := range errs {
		s.logger.WithError(err).WithField("period", period).Warn("series unavailable")
	}

	return normalizeSeries(series), nil
}

// RefreshPrices fetches the latest prices, caches them, and returns a tick
// for every currency whose price changed since the previous refresh.
func (s *FeedService) RefreshPrices(ctx context.Context) ([]domain.Tick, error) {
	ctx, span := s.tracer.Start(ctx, "feed-service.refresh-prices")
	defer span.End()

	prices, err := s.provider.FetchPrices(ctx)
	if err != nil {
		return nil, err
	}

	for _, snap := range prices {
		if err := s.setPriceCache(ctx, snap); err != nil {
			s.logger.WithError(err).WithField("symbol", snap.Symbol).Warn("redis cache write error")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ticks []domain.Tick
	for _, symbol := range domain.Currencies {
		snap, ok := prices[symbol]
		if !ok {
			continue
		}
		if prev, seen := s.last[symbol]; seen && prev == snap.PriceUSD {
			continue
		}
		s.last[symbol] = snap.PriceUSD
		ticks = append(ticks, domain.Tick{Symbol: symbol, Price: snap.PriceUSD})
	}

	if s.archive != nil && len(ticks) > 0 {
		if err := s.archive.RecordTicks(ctx, ticks); err != nil {
			s.logger.WithError(err).Warn("tick archive write error")
		}
	}

	s.logger.WithFields(logrus.Fields{"assets": len(prices), "changed": len(ticks)}).Debug("Refreshed prices")
	return ticks, nil
}

// RefreshSeries fetches and caches one (symbol, period) series.
func (s *FeedService) RefreshSeries(ctx context.Context, symbol string, period domain.Period) error {
	ctx, span := s.tracer.Start(ctx, "feed-service.refresh-series")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("period", period.String()))

	series, err := s.provider.FetchSeries(ctx, symbol, period)
	if err != nil {
		return fmt.Errorf("refresh %s %s series: %w", symbol, period, err)
	}
	if len(series) == 0 {
		return nil
	}
	s.archiveSeries(ctx, period, symbol, series)
	if err := s.setSeriesCache(ctx, period, symbol, series); err != nil {
		return fmt.Errorf("cache %s %s series: %w", symbol, period, err)
	}

	s.logger.WithFields(logrus.Fields{"symbol": symbol, "period": period, "samples": len(series)}).Debug("Refreshed series")
	return nil
}

// normalizeSeries trims every series to the length of the shortest one,
// dropping the oldest samples.
func normalizeSeries(series domain.PriceSeries) domain.PriceSeries {
	shortest := -1
	for _, values := range series {
		if shortest < 0 || len(values) < shortest {
			shortest = len(values)
		}
	}

	out := make(domain.PriceSeries, len(series))
	for symbol, values := range series {
		out[symbol] = values[len(values)-shortest:]
	}
	return out
}

func (s *FeedService) archiveSeries(ctx context.Context, period domain.Period, symbol string, series []float64) {
	if s.archive == nil {
		return
	}
	if err := s.archive.UpsertSeries(ctx, symbol, period, series); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("series archive write error")
	}
}

func (s *FeedService) getArchivedSeries(ctx context.Context, period domain.Period, symbol string) []float64 {
	if s.archive == nil {
		return nil
	}
	series, err := s.archive.GetSeries(ctx, symbol, period)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("series archive read error")
		return nil
	}
	return series
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

func seriesKey(period domain.Period, symbol string) string {
	return "series:" + string(period) + ":" + symbol
}

func (s *FeedService) setPriceCache(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, priceKey(snapshot.Symbol), data, priceCacheTTL).Err()
}

func (s *FeedService) getPriceCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	if s.redis == nil {
		return nil, nil
	}
	data, err := s.redis.Get(ctx, priceKey(symbol)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *FeedService) setSeriesCache(ctx context.Context, period domain.Period, symbol string, series []float64) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, seriesKey(period, symbol), data, seriesCacheTTL).Err()
}

func (s *FeedService) getSeriesCache(ctx context.Context, period domain.Period, symbol string) ([]float64, error) {
	if s.redis == nil {
		return nil, nil
	}
	data, err := s.redis.Get(ctx, seriesKey(period, symbol)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var series []float64
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, err
	}
	return series, nil
}
