package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pricetracker/cache"
	"pricetracker/config"
	"pricetracker/controllers"
	"pricetracker/logger"
	"pricetracker/middleware"
	"pricetracker/routes"
	"pricetracker/scheduler"
	"pricetracker/services"
	"pricetracker/services/datafetcher"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Str("environment", cfg.Environment).Str("version", cfg.Version).Msg("price tracker starting")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.OpenDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database initialisation failed")
	}

	// Redis when configured, in-process cache otherwise.
	var (
		cacheStore  cache.Store
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("redis initialisation failed")
		}
		cacheStore = redisCache
		redisClient = redisCache.Client()
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache enabled")
	} else {
		cacheStore = cache.NewMemory()
		log.Info().Msg("no redis configured, using in-process cache")
	}

	coingecko := datafetcher.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.UpstreamTimeout)
	exchangerate := datafetcher.NewExchangeRateClient(cfg.ExchangeRateBaseURL, cfg.UpstreamTimeout)

	var stockSource datafetcher.StockSource = datafetcher.NewSeedSource()
	if cfg.AlphaVantageAPIKey != "" {
		stockSource = datafetcher.NewAlphaVantageSource(cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey, cfg.UpstreamTimeout)
		log.Info().Msg("using alpha vantage stock source")
	}

	cryptoService := services.NewCryptoService(db, cacheStore, coingecko, cfg.CryptoIDs, cfg.CryptoCacheTTL, cfg.CryptoTopLimit, log)
	stockService := services.NewStockService(db, cacheStore, stockSource, cfg.StockSymbols, cfg.StockCacheTTL, log)
	forexService := services.NewForexService(db, cacheStore, exchangerate, cfg.ForexTargets, cfg.ForexCacheTTL, log)
	notifier := services.NewNotificationService(cfg.UpstreamTimeout, log)
	alertService := services.NewAlertService(db, notifier, log)

	hub := services.NewRealtimeHub(log)
	go hub.Run()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))

	routes.Setup(router, routes.Deps{
		Crypto: controllers.NewCryptoController(cryptoService),
		Stocks: controllers.NewStockController(stockService),
		Forex:  controllers.NewForexController(forexService),
		Alerts: controllers.NewAlertController(alertService),
		Status: controllers.NewStatusController(cfg.Version, cfg.Environment, db, redisClient),
		Hub:    hub,

		Redis:              redisClient,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             log,
	})

	jobs := scheduler.New(cfg, cryptoService, stockService, forexService, alertService, hub, log)
	if err := jobs.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler initialisation failed")
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	gracefulShutdown(server, jobs, hub, log)
}

// gracefulShutdown waits for SIGINT/SIGTERM, stops the scheduler and
// hub, then drains HTTP connections.
func gracefulShutdown(server *http.Server, jobs *scheduler.Scheduler, hub *services.RealtimeHub, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	jobs.Stop()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("shutdown complete")
}
