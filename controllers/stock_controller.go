package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pricetracker/services"
)

// StockController handles stock read requests.
type StockController struct {
	stocks *services.StockService
}

// NewStockController creates a stock controller.
func NewStockController(stocks *services.StockService) *StockController {
	return &StockController{stocks: stocks}
}

// GetStocks returns all tracked stocks.
// GET /api/stocks
func (sc *StockController) GetStocks(c *gin.Context) {
	prices, err := sc.stocks.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// GetStock returns a single stock by symbol.
// GET /api/stocks/:symbol
func (sc *StockController) GetStock(c *gin.Context) {
	price, err := sc.stocks.GetBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": price})
}
