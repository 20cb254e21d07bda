package prices

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tickerbar/internal/domain"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultRetryDelay is the fixed pause between fetch cycles.
const DefaultRetryDelay = 2 * time.Second

// Fetcher retrieves the two halves of a fetch cycle.
type Fetcher interface {
	FetchPrices(ctx context.Context, period domain.Period) (domain.PriceSeries, error)
	FetchMarkets(ctx context.Context) (domain.MarketSnapshot, error)
}

// Dispatcher is the part of the state container the syncer drives.
type Dispatcher interface {
	Dispatch(action Action)
	GetState() State
}

type Options struct {
	// RetryDelay defaults to DefaultRetryDelay.
	RetryDelay time.Duration
	// DiscardStale drops a successful response when a newer fetch has been
	// issued since. Off by default: the last response to arrive wins.
	DiscardStale bool
}

// Syncer runs the fetch cycle: one request marker, two concurrent retrievals,
// then success or a failure that is only surfaced before the first load.
// Every cycle schedules the next one after RetryDelay.
type Syncer struct {
	tracer     trace.Tracer
	dispatcher Dispatcher
	fetcher    Fetcher
	logger     *logrus.Entry

	retryDelay   time.Duration
	discardStale bool
	requestSeq   atomic.Uint64

	mu      sync.Mutex
	retry   *time.Timer
	stopped bool
}

func NewSyncer(tracer trace.Tracer, dispatcher Dispatcher, fetcher Fetcher, logger *logrus.Logger, opts Options) *Syncer {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Syncer{
		tracer:       tracer,
		dispatcher:   dispatcher,
		fetcher:      fetcher,
		logger:       logger.WithField("component", "prices"),
		retryDelay:   opts.RetryDelay,
		discardStale: opts.DiscardStale,
	}
}

// Run performs the first fetch and blocks until ctx is cancelled, then
// releases the pending retry. A stopped syncer may be run again.
func (s *Syncer) Run(ctx context.Context) {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()

	s.logger.WithField("retry_delay", s.retryDelay).Info("Price sync starting")
	if err := s.FetchData(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Warn("Initial fetch failed, retrying")
	}
	<-ctx.Done()
	s.Stop()
	s.logger.Info("Price sync stopped")
}

// Stop cancels the pending retry; no further cycles are scheduled.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// FetchData runs one fetch cycle and schedules the next. The returned error is
// informational; failures are already reflected in state and retried.
func (s *Syncer) FetchData(ctx context.Context) error {
	parent := ctx
	ctx, span := s.tracer.Start(ctx, "prices.fetch-data")
	defer span.End()

	s.dispatcher.Dispatch(FetchDataRequest{})
	id := s.requestSeq.Add(1)
	period := s.dispatcher.GetState().Period
	span.SetAttributes(attribute.String("period", period.String()), attribute.Int64("request_id", int64(id)))

	rateData, marketData, err := s.fetchBoth(ctx, period)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	defer s.scheduleRetry(parent)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !s.dispatcher.GetState().IsLoaded {
			s.dispatcher.Dispatch(FetchDataFailure{Error: ConnectivityError})
		}
		return err
	}

	if s.discardStale && id < s.requestSeq.Load() {
		s.logger.WithFields(logrus.Fields{"request_id": id, "period": period}).Debug("Discarding stale response")
		return nil
	}
	s.dispatcher.Dispatch(FetchDataSuccess{RateData: rateData, MarketData: marketData})
	return nil
}

// SelectPeriod switches the period and starts a fresh cycle right away. Only
// an unsupported period is reported; fetch failures are reflected in state
// and retried like any other cycle.
func (s *Syncer) SelectPeriod(ctx context.Context, period domain.Period) error {
	if !period.Valid() {
		return fmt.Errorf("select period: unsupported period %q", period)
	}
	s.dispatcher.Dispatch(SetPeriod{Period: period})
	if err := s.FetchData(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).WithField("period", period).Warn("Fetch after period change failed")
	}
	return nil
}

func (s *Syncer) fetchBoth(ctx context.Context, period domain.Period) (domain.PriceSeries, domain.MarketSnapshot, error) {
	var (
		rateData   domain.PriceSeries
		marketData domain.MarketSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.fetcher.FetchPrices(gctx, period)
		if err != nil {
			return fmt.Errorf("fetch prices for %s: %w", period, err)
		}
		rateData = data
		return nil
	})
	g.Go(func() error {
		data, err := s.fetcher.FetchMarkets(gctx)
		if err != nil {
			return fmt.Errorf("fetch markets: %w", err)
		}
		marketData = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if rateData == nil {
		rateData = domain.PriceSeries{}
	}
	if marketData == nil {
		marketData = domain.MarketSnapshot{}
	}
	return rateData, marketData, nil
}

// scheduleRetry replaces any pending retry so at most one cycle is queued.
func (s *Syncer) scheduleRetry(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || ctx.Err() != nil {
		return
	}
	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = time.AfterFunc(s.retryDelay, func() {
		if err := s.FetchData(ctx); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Debug("Fetch cycle failed")
		}
	})
}
