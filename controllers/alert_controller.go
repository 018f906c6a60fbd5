package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pricetracker/models"
	"pricetracker/services"
)

// AlertController handles alert CRUD requests.
type AlertController struct {
	alerts *services.AlertService
}

// NewAlertController creates an alert controller.
func NewAlertController(alerts *services.AlertService) *AlertController {
	return &AlertController{alerts: alerts}
}

// GetAlerts returns all alerts, newest first.
// GET /api/alerts
func (ac *AlertController) GetAlerts(c *gin.Context) {
	alerts, err := ac.alerts.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// GetAlert returns a single alert by id.
// GET /api/alerts/:id
func (ac *AlertController) GetAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	alert, err := ac.alerts.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alert})
}

// CreateAlert creates a new one-shot alert.
// POST /api/alerts
func (ac *AlertController) CreateAlert(c *gin.Context) {
	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := ac.alerts.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAlert) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// DeleteAlert deletes an alert. Deleting an absent id still returns 204.
// DELETE /api/alerts/:id
func (ac *AlertController) DeleteAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	if err := ac.alerts.Delete(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}
	c.Status(http.StatusNoContent)
}
