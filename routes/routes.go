package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pricetracker/controllers"
	"pricetracker/middleware"
	"pricetracker/services"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Crypto *controllers.CryptoController
	Stocks *controllers.StockController
	Forex  *controllers.ForexController
	Alerts *controllers.AlertController
	Status *controllers.StatusController
	Hub    *services.RealtimeHub

	Redis              *redis.Client // nil disables redis-backed rate limiting
	RateLimitPerMinute int
	Logger             zerolog.Logger
}

// Setup registers all API routes.
func Setup(router *gin.Engine, deps Deps) {
	writeLimiter := middleware.RateLimit(deps.Redis, deps.RateLimitPerMinute, deps.Logger)

	api := router.Group("/api")
	{
		crypto := api.Group("/crypto")
		{
			crypto.GET("", deps.Crypto.GetCryptos)
			crypto.GET("/top/:count", deps.Crypto.GetTopCryptos)
			crypto.GET("/:symbol", deps.Crypto.GetCrypto)
		}

		stocks := api.Group("/stocks")
		{
			stocks.GET("", deps.Stocks.GetStocks)
			stocks.GET("/:symbol", deps.Stocks.GetStock)
		}

		forex := api.Group("/forex")
		{
			forex.GET("", deps.Forex.GetRates)
			forex.GET("/:base/:target", deps.Forex.GetRate)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("", deps.Alerts.GetAlerts)
			alerts.GET("/:id", deps.Alerts.GetAlert)
			alerts.POST("", writeLimiter, deps.Alerts.CreateAlert)
			alerts.DELETE("/:id", writeLimiter, deps.Alerts.DeleteAlert)
		}

		api.GET("/status", deps.Status.GetStatus)
	}

	router.GET("/health", deps.Status.Live)
	router.GET("/health/live", deps.Status.Live)
	router.GET("/health/ready", deps.Status.Ready)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Hub != nil {
		router.GET("/ws/prices", func(c *gin.Context) {
			deps.Hub.HandleWebSocket(c.Writer, c.Request)
		})
	}
}
