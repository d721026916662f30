package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
)

type NotificationProviderHandler struct {
	service *services.NotificationService
}

func NewNotificationProviderHandler(service *services.NotificationService) *NotificationProviderHandler {
	return &NotificationProviderHandler{service: service}
}

// List handles GET /api/v1/notifications/providers
func (h *NotificationProviderHandler) List(c *gin.Context) {
	providers, err := h.service.ListProviders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, providers)
}

// Create handles POST /api/v1/notifications/providers
func (h *NotificationProviderHandler) Create(c *gin.Context) {
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if provider.Name == "" || provider.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and url are required"})
		return
	}

	if err := h.service.CreateProvider(&provider); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, provider)
}

// Delete handles DELETE /api/v1/notifications/providers/:id
func (h *NotificationProviderHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteProvider(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "provider deleted"})
}
