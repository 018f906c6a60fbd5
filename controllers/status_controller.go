package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// StatusController serves the status probe and health endpoints.
type StatusController struct {
	version     string
	environment string
	db          *gorm.DB
	redis       *redis.Client // nil when running on the in-process cache
}

// NewStatusController creates a status controller. redisClient may be
// nil.
func NewStatusController(version, environment string, db *gorm.DB, redisClient *redis.Client) *StatusController {
	return &StatusController{
		version:     version,
		environment: environment,
		db:          db,
		redis:       redisClient,
	}
}

// GetStatus returns the API status probe.
// GET /api/status
func (sc *StatusController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     sc.version,
		"environment": sc.environment,
	})
}

// Live reports process liveness.
// GET /health/live (and /health)
func (sc *StatusController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the store and cache backends are reachable.
// GET /health/ready
func (sc *StatusController) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	sqlDB, err := sc.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if sc.redis != nil {
		if err := sc.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"checks": checks})
}
