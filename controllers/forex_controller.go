package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pricetracker/services"
)

// ForexController handles forex read requests.
type ForexController struct {
	forex *services.ForexService
}

// NewForexController creates a forex controller.
func NewForexController(forex *services.ForexService) *ForexController {
	return &ForexController{forex: forex}
}

// GetRates returns all USD-based rates.
// GET /api/forex
func (fc *ForexController) GetRates(c *gin.Context) {
	rates, err := fc.forex.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch forex rates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rates})
}

// GetRate returns the rate for one ordered currency pair.
// GET /api/forex/:base/:target
func (fc *ForexController) GetRate(c *gin.Context) {
	rate, err := fc.forex.GetRate(c.Request.Context(), c.Param("base"), c.Param("target"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Forex rate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch forex rate"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rate})
}
