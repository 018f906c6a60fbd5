package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit enforces a per-client-IP request budget on write endpoints,
// backed by redis so the budget holds across replicas. When redis is not
// configured the middleware is a pass-through.
func RateLimit(redisClient *redis.Client, perMinute int, logger zerolog.Logger) gin.HandlerFunc {
	if redisClient == nil || perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := redis_rate.NewLimiter(redisClient)
	log := logger.With().Str("component", "rate_limit").Logger()

	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()

		res, err := limiter.Allow(c.Request.Context(), key, redis_rate.PerMinute(perMinute))
		if err != nil {
			// Limiter trouble must not take the API down.
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if res.Allowed == 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
