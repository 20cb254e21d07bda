package job

import (
	"context"
	"time"

	"tickerbar/internal/domain"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSeriesInterval = 5 * time.Minute
	defaultSeriesDelay    = 10 * time.Second
	seriesPerTick         = 2
)

// FeedRefresher refreshes cached feed data from the upstream provider.
type FeedRefresher interface {
	RefreshPrices(ctx context.Context) ([]domain.Tick, error)
	RefreshSeries(ctx context.Context, symbol string, period domain.Period) error
}

// TickPublisher delivers ticks to live clients.
type TickPublisher interface {
	Broadcast(tick domain.Tick) error
}

type seriesKey struct {
	symbol string
	period domain.Period
}

// PricePoller runs background goroutines that periodically refresh the feed
// cache and publish price changes.
type PricePoller struct {
	tracer    trace.Tracer
	feed      FeedRefresher
	publisher TickPublisher
	logger    *logrus.Entry

	pollInterval   time.Duration
	seriesInterval time.Duration
	seriesDelay    time.Duration
	pairs          []seriesKey
}

func NewPricePoller(tracer trace.Tracer, feed FeedRefresher, publisher TickPublisher, pollIntervalSecs int, logger *logrus.Logger) *PricePoller {
	pairs := make([]seriesKey, 0, len(domain.Periods)*len(domain.Currencies))
	for _, period := range domain.Periods {
		for _, symbol := range domain.Currencies {
			pairs = append(pairs, seriesKey{symbol: symbol, period: period})
		}
	}

	return &PricePoller{
		tracer:         tracer,
		feed:           feed,
		publisher:      publisher,
		logger:         logger.WithField("component", "poller"),
		pollInterval:   time.Duration(pollIntervalSecs) * time.Second,
		seriesInterval: defaultSeriesInterval,
		seriesDelay:    defaultSeriesDelay,
		pairs:          pairs,
	}
}

// Start launches background polling goroutines. Blocks until ctx is cancelled.
func (p *PricePoller) Start(ctx context.Context) {
	p.logger.Info("Price poller starting")

	go p.pollLoop(ctx, "current-prices", 0, p.pollInterval, p.publishPrices)

	// Series refreshes are staggered behind the price poll to spread the
	// upstream rate limit.
	index := 0
	go p.pollLoop(ctx, "series", p.seriesDelay, p.seriesInterval, func(ctx context.Context) error {
		p.refreshSeriesBatch(ctx, &index, seriesPerTick)
		return nil
	})

	<-ctx.Done()
	p.logger.Info("Price poller stopped")
}

func (p *PricePoller) pollLoop(ctx context.Context, name string, delay, interval time.Duration, fn func(context.Context) error) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	// Run immediately on start
	if err := fn(ctx); err != nil {
		p.logger.WithError(err).WithField("poller", name).Warn("initial run error")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				p.logger.WithError(err).WithField("poller", name).Warn("poll error")
			}
		}
	}
}

func (p *PricePoller) publishPrices(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "poller.publish-prices")
	defer span.End()

	ticks, err := p.feed.RefreshPrices(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("ticks", len(ticks)))

	for _, tick := range ticks {
		if err := p.publisher.Broadcast(tick); err != nil {
			p.logger.WithError(err).WithField("symbol", tick.Symbol).Warn("tick publish error")
		}
	}
	return nil
}

func (p *PricePoller) refreshSeriesBatch(ctx context.Context, index *int, count int) {
	for i := 0; i < count; i++ {
		pair := p.pairs[*index%len(p.pairs)]
		*index++

		if err := p.feed.RefreshSeries(ctx, pair.symbol, pair.period); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{"symbol": pair.symbol, "period": pair.period}).Warn("series refresh error")
		}
	}
}
