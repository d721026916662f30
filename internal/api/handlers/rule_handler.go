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

type RuleHandler struct {
	service *services.RuleService
}

func NewRuleHandler(db *gorm.DB) *RuleHandler {
	return &RuleHandler{
		service: services.NewRuleService(db),
	}
}

// List handles GET /api/v1/rules
func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// Create handles POST /api/v1/rules
func (h *RuleHandler) Create(c *gin.Context) {
	var rule models.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Create(&rule); err != nil {
		if errors.Is(err, services.ErrInvalidPattern) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// Toggle handles PATCH /api/v1/rules/:id
func (h *RuleHandler) Toggle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Toggle(uint(id), *req.Enabled); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rule, _ := h.service.GetByID(uint(id))
	c.JSON(http.StatusOK, rule)
}
