package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickerbar/internal/cache"
	"tickerbar/internal/config"
	"tickerbar/internal/feed"
	"tickerbar/internal/handler"
	"tickerbar/internal/job"
	"tickerbar/internal/provider"
	"tickerbar/internal/repository"
	"tickerbar/internal/service"
	"tickerbar/pkg/logger"
	"tickerbar/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "tickerbar/docs"
)

const serviceName = "tickerbar-server"

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	newLoggerFunc            = logger.New
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.PriceProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	newFeedServiceFunc     = service.NewFeedService
	openPoolFunc           = pgxpool.New
	newSeriesRepoFunc      = func(pool *pgxpool.Pool, tracer trace.Tracer) service.SeriesArchive {
		return repository.NewSeriesRepository(pool, tracer)
	}
	newHubFunc             = feed.NewHub
	newPricePollerFunc     = job.NewPricePoller
	startPollerFunc        = func(p *job.PricePoller, ctx context.Context) { go p.Start(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Tickerbar Feed API
// @version         1.0
// @description     Price series, market snapshots and live ticks for tickerbar terminals.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfigFunc(ctx)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log, err := newLoggerFunc(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("error shutting down tracer provider")
		}
	}()

	// Redis is optional; without it every request goes upstream.
	var redisClient service.RedisClient
	if client, err := initRedisFunc(ctx, cfg.RedisURL, log); err != nil {
		log.WithError(err).Warn("Redis unavailable, serving without cache")
	} else {
		redisClient = client
		defer client.Close()
	}

	cgProvider := newCoinGeckoProviderFunc(tracer)
	feedService := newFeedServiceFunc(tracer, cgProvider, redisClient, log)

	// Postgres archive is optional; schema comes from cmd/migrate.
	if cfg.DatabaseURL != "" {
		pool, err := openPoolFunc(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("Postgres unavailable, serving without archive")
		} else {
			defer pool.Close()
			feedService.WithArchive(newSeriesRepoFunc(pool, tracer))
			log.Info("Series archive enabled")
		}
	}
	hub := newHubFunc(log)

	// Start price poller (background goroutines, stopped by ctx cancel)
	poller := newPricePollerFunc(tracer, feedService, hub, cfg.CoinGeckoPollSecs, log)
	startPollerFunc(poller, ctx)

	h := newHandlerFunc(tracer, feedService, hub)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))

	h.RegisterRoutes(r, cfg.Server.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Feed server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down server...")

	cancel()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting")
}
