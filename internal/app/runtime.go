// Package app wires the shared price runtime used by every terminal front end.
package app

import (
	"context"
	"errors"
	"sync"

	"tickerbar/internal/config"
	"tickerbar/internal/domain"
	"tickerbar/internal/live"
	"tickerbar/internal/prices"
	"tickerbar/internal/provider"
	"tickerbar/internal/store"
	"tickerbar/internal/ui"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type (
	PricesStore = store.Store[prices.State, prices.Action]
	UIStore     = store.Store[ui.State, ui.Action]
)

// Runtime owns the prices store and the two processes feeding it: the
// periodic syncer and the live tick channel.
type Runtime struct {
	Prices *PricesStore

	syncer  *prices.Syncer
	channel *live.Channel
	logger  *logrus.Entry

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config, tracer trace.Tracer, logger *logrus.Logger) *Runtime {
	priceStore := store.New(prices.Reducer, prices.InitialState())
	client := provider.NewAPIClient(tracer, cfg.APIURL)

	return &Runtime{
		Prices: priceStore,
		syncer: prices.NewSyncer(tracer, priceStore, client, logger, prices.Options{
			RetryDelay:   cfg.RetryDelay,
			DiscardStale: cfg.DiscardStaleResponses,
		}),
		channel: live.NewChannel(cfg.WSURL, priceStore, logger),
		logger:  logger.WithField("component", "runtime"),
	}
}

// Start launches the syncer and the live channel. Calling Start on a running
// runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	ctx = r.ctx
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.syncer.Run(ctx)
	}()
	r.channel.Start(ctx)
	r.logger.Info("Runtime started")
}

// Stop halts both processes and waits for them to exit.
func (r *Runtime) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	r.channel.Stop()
	r.wg.Wait()
	r.logger.Info("Runtime stopped")
}

// SelectPeriod switches the series period and fetches immediately. The
// fetch and its follow-up cycles run under the runtime's context.
func (r *Runtime) SelectPeriod(period domain.Period) error {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		return errors.New("runtime not started")
	}
	return r.syncer.SelectPeriod(ctx, period)
}

// NewUIStore creates an independent view/visibility store, one per session.
func NewUIStore() *UIStore {
	return store.New(ui.Reducer, ui.InitialState())
}
