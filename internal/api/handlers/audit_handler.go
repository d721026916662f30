package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
)

type AuditHandler struct {
	service *services.AuditService
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{
		service: services.NewAuditService(db),
	}
}

// List handles GET /api/v1/audit/blocked
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.service.List(services.ListFilter{
		IPAddress: c.Query("ip"),
		Category:  models.RuleCategory(c.Query("category")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// TopOffenders handles GET /api/v1/audit/offenders
func (h *AuditHandler) TopOffenders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	window, err := time.ParseDuration(c.DefaultQuery("window", "24h"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
		return
	}

	offenders, err := h.service.TopOffenders(time.Now().Add(-window), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, offenders)
}
