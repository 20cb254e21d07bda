package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"tickerbar/internal/config"
	"tickerbar/internal/domain"
	"tickerbar/internal/job"
	"tickerbar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var started atomic.Bool
	restore := stubServerDeps(&started)
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
	if !started.Load() {
		t.Fatal("expected poller to be started")
	}
}

func TestMainWithArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var started atomic.Bool
	restore := stubServerDeps(&started)
	defer restore()

	origLoadConfig := loadConfigFunc
	origOpenPool := openPoolFunc
	origNewRepo := newSeriesRepoFunc
	defer func() {
		loadConfigFunc = origLoadConfig
		openPoolFunc = origOpenPool
		newSeriesRepoFunc = origNewRepo
	}()

	loadConfigFunc = func(context.Context) (*config.Config, error) {
		return &config.Config{
			CoinGeckoPollSecs: 1,
			DatabaseURL:       "postgres://tickerbar@127.0.0.1:1/tickerbar",
			Server:            config.ServerConfig{Port: 8080},
		}, nil
	}
	var wired atomic.Bool
	newSeriesRepoFunc = func(*pgxpool.Pool, trace.Tracer) service.SeriesArchive {
		wired.Store(true)
		return nil
	}

	main()

	if !wired.Load() {
		t.Fatal("expected series archive to be wired")
	}
}

func TestMainArchiveUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var started atomic.Bool
	restore := stubServerDeps(&started)
	defer restore()

	origLoadConfig := loadConfigFunc
	origOpenPool := openPoolFunc
	origNewRepo := newSeriesRepoFunc
	defer func() {
		loadConfigFunc = origLoadConfig
		openPoolFunc = origOpenPool
		newSeriesRepoFunc = origNewRepo
	}()

	loadConfigFunc = func(context.Context) (*config.Config, error) {
		return &config.Config{
			CoinGeckoPollSecs: 1,
			DatabaseURL:       "postgres://db/tickerbar",
			Server:            config.ServerConfig{Port: 8080},
		}, nil
	}
	openPoolFunc = func(context.Context, string) (*pgxpool.Pool, error) {
		return nil, errors.New("connection refused")
	}
	newSeriesRepoFunc = func(*pgxpool.Pool, trace.Tracer) service.SeriesArchive {
		t.Fatal("archive should not be wired when the pool fails")
		return nil
	}

	main()

	if !started.Load() {
		t.Fatal("expected server to start without archive")
	}
}

func stubServerDeps(pollerStarted *atomic.Bool) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origNewLogger := newLoggerFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewProvider := newCoinGeckoProviderFunc
	origStartPoller := startPollerFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func(context.Context) (*config.Config, error) {
		return &config.Config{CoinGeckoPollSecs: 1, Server: config.ServerConfig{Port: 8080}}, nil
	}
	newLoggerFunc = func(config.LogConfig) (*logrus.Logger, error) {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l, nil
	}
	initRedisFunc = func(context.Context, string, *logrus.Logger) (*redis.Client, error) {
		return nil, errors.New("redis disabled in tests")
	}
	initTracerFunc = func(ctx context.Context, name string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newCoinGeckoProviderFunc = func(trace.Tracer) service.PriceProvider { return stubPriceProvider{} }
	startPollerFunc = func(*job.PricePoller, context.Context) { pollerStarted.Store(true) }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		newLoggerFunc = origNewLogger
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newCoinGeckoProviderFunc = origNewProvider
		startPollerFunc = origStartPoller
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type stubPriceProvider struct{}

func (stubPriceProvider) FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error) {
	return map[string]*domain.PriceSnapshot{
		"BTC": {Symbol: "BTC", PriceUSD: 1},
	}, nil
}

func (stubPriceProvider) FetchSeries(ctx context.Context, symbol string, period domain.Period) ([]float64, error) {
	return []float64{1}, nil
}
