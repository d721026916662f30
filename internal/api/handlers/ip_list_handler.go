package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
)

type IPListHandler struct {
	service *services.IPListService
}

func NewIPListHandler(db *gorm.DB) *IPListHandler {
	return &IPListHandler{
		service: services.NewIPListService(db),
	}
}

// List handles GET /api/v1/ip-lists/:type
func (h *IPListHandler) List(c *gin.Context) {
	listType := models.ListType(c.Param("type"))
	if listType != models.ListTypeWhitelist && listType != models.ListTypeBlacklist {
		c.JSON(http.StatusBadRequest, gin.H{"error": "list type must be whitelist or blacklist"})
		return
	}

	entries, err := h.service.List(listType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Create handles POST /api/v1/ip-lists
func (h *IPListHandler) Create(c *gin.Context) {
	var req struct {
		IPAddress string          `json:"ip_address" binding:"required"`
		ListType  models.ListType `json:"list_type" binding:"required"`
		Reason    string          `json:"reason"`
		AddedBy   string          `json:"added_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AddedBy == "" {
		req.AddedBy = "admin"
	}

	err := h.service.Add(req.IPAddress, req.ListType, req.Reason, req.AddedBy)
	if err != nil {
		if errors.Is(err, services.ErrInvalidIPAddress) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, services.ErrEntryExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "entry added"})
}

// Delete handles DELETE /api/v1/ip-lists/:id
func (h *IPListHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	if err := h.service.Remove(uint(id)); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "entry removed"})
}
