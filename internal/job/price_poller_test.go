package job

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"tickerbar/internal/domain"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewPricePollerInterval(t *testing.T) {
	poller := NewPricePoller(testTracer, &stubFeed{}, &stubPublisher{}, 2, testLogger())
	if poller.pollInterval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", poller.pollInterval)
	}
	if want := len(domain.Periods) * len(domain.Currencies); len(poller.pairs) != want {
		t.Fatalf("expected %d series pairs, got %d", want, len(poller.pairs))
	}
}

func TestPricePollerStartPublishesTicks(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{ticks: []domain.Tick{{Symbol: "BTC", Price: 1}, {Symbol: "ETH", Price: 2}}}
	publisher := &stubPublisher{}
	poller := NewPricePoller(testTracer, feed, publisher, 1, testLogger())
	poller.seriesDelay = time.Millisecond
	poller.seriesInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	eventually(t, func() bool { return len(publisher.published()) == 2 })
	eventually(t, func() bool { return len(feed.seriesCalls()) == seriesPerTick })
}

func TestPublishPricesError(t *testing.T) {
	feed := &stubFeed{err: errors.New("upstream down")}
	publisher := &stubPublisher{}
	poller := NewPricePoller(testTracer, feed, publisher, 1, testLogger())

	if err := poller.publishPrices(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(publisher.published()) != 0 {
		t.Fatal("nothing should be published on error")
	}
}

func TestPublishPricesContinuesAfterBroadcastError(t *testing.T) {
	feed := &stubFeed{ticks: []domain.Tick{{Symbol: "BTC", Price: 1}, {Symbol: "ETH", Price: 2}}}
	publisher := &stubPublisher{err: errors.New("encode")}
	poller := NewPricePoller(testTracer, feed, publisher, 1, testLogger())

	if err := poller.publishPrices(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.published()) != 2 {
		t.Fatalf("expected both ticks attempted, got %d", len(publisher.published()))
	}
}

func TestRefreshSeriesBatchRoundRobin(t *testing.T) {
	feed := &stubFeed{}
	poller := NewPricePoller(testTracer, feed, &stubPublisher{}, 1, testLogger())

	idx := 0
	poller.refreshSeriesBatch(context.Background(), &idx, 3)

	calls := feed.seriesCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 refreshes, got %d", len(calls))
	}
	if calls[0] != (seriesKey{symbol: domain.Currencies[0], period: domain.Periods[0]}) {
		t.Fatalf("unexpected first pair: %+v", calls[0])
	}

	idx = len(poller.pairs) - 1
	poller.refreshSeriesBatch(context.Background(), &idx, 2)
	calls = feed.seriesCalls()
	if calls[4] != calls[0] {
		t.Fatalf("expected wrap-around to first pair, got %+v", calls[4])
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

type stubFeed struct {
	mu     sync.Mutex
	ticks  []domain.Tick
	err    error
	series []seriesKey
}

func (s *stubFeed) RefreshPrices(ctx context.Context) ([]domain.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ticks := s.ticks
	s.ticks = nil
	return ticks, nil
}

func (s *stubFeed) RefreshSeries(ctx context.Context, symbol string, period domain.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = append(s.series, seriesKey{symbol: symbol, period: period})
	return nil
}

func (s *stubFeed) seriesCalls() []seriesKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]seriesKey(nil), s.series...)
}

type stubPublisher struct {
	mu    sync.Mutex
	ticks []domain.Tick
	err   error
}

func (s *stubPublisher) Broadcast(tick domain.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, tick)
	return s.err
}

func (s *stubPublisher) published() []domain.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Tick(nil), s.ticks...)
}
