package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pricetracker/services"
)

// CryptoController handles cryptocurrency read requests.
type CryptoController struct {
	crypto *services.CryptoService
}

// NewCryptoController creates a crypto controller.
func NewCryptoController(crypto *services.CryptoService) *CryptoController {
	return &CryptoController{crypto: crypto}
}

// GetCryptos returns all tracked cryptocurrencies, highest market cap
// first.
// GET /api/crypto
func (cc *CryptoController) GetCryptos(c *gin.Context) {
	prices, err := cc.crypto.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cryptocurrencies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// GetTopCryptos returns the top-n cryptocurrencies by market cap.
// GET /api/crypto/top/:count
func (cc *CryptoController) GetTopCryptos(c *gin.Context) {
	count, err := strconv.Atoi(c.Param("count"))
	if err != nil || count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count"})
		return
	}

	prices, err := cc.crypto.GetTop(c.Request.Context(), count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cryptocurrencies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// GetCrypto returns a single cryptocurrency by symbol.
// GET /api/crypto/:symbol
func (cc *CryptoController) GetCrypto(c *gin.Context) {
	price, err := cc.crypto.GetBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cryptocurrency not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cryptocurrency"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": price})
}
