package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
	"github.com/wardenhq/warden/internal/waf"
)

func setupWAFRouter(t *testing.T, mutate func(*config.WAFConfig)) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&models.Rule{},
		&models.IPListEntry{},
		&models.BlockedRequest{},
	))

	ruleService := services.NewRuleService(db)
	assert.NoError(t, ruleService.BootstrapDefaults())

	cfg := config.DefaultWAFConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine := waf.NewEngine(cfg,
		waf.NewScanner(ruleService),
		services.NewIPListService(db),
		services.NewAuditService(db),
		nil,
	)

	router := gin.New()
	router.Use(WAF(engine))
	router.GET("/search", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.POST("/upload", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return router, db
}

func TestWAFMiddleware_AllowsBenignRequest(t *testing.T) {
	router, _ := setupWAFRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=hello+world", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWAFMiddleware_BlocksScriptInjection(t *testing.T) {
	router, db := setupWAFRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "xss")
	assert.NotContains(t, w.Body.String(), "(?i)", "response must not disclose the pattern")

	var count int64
	assert.NoError(t, db.Model(&models.BlockedRequest{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWAFMiddleware_BlocksDangerousUpload(t *testing.T) {
	router, _ := setupWAFRouter(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "shell.php")
	assert.NoError(t, err)
	_, err = part.Write([]byte("<?php system($_GET['c']); ?>"))
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "dangerous_file_upload")
}

func TestWAFMiddleware_DeniesBlacklistedIP(t *testing.T) {
	router, db := setupWAFRouter(t, nil)

	// httptest requests arrive from 192.0.2.1
	ipList := services.NewIPListService(db)
	assert.NoError(t, ipList.Add("192.0.2.1", models.ListTypeBlacklist, "test", "admin"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=hello", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, strings.ToLower(w.Body.String()), "blacklist")
}

func TestWAFMiddleware_DisabledPassesEverything(t *testing.T) {
	router, _ := setupWAFRouter(t, func(cfg *config.WAFConfig) { cfg.Enabled = false })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=%3Cscript%3E", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWAFMiddleware_AdminBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Rule{}, &models.IPListEntry{}, &models.BlockedRequest{}))
	ruleService := services.NewRuleService(db)
	assert.NoError(t, ruleService.BootstrapDefaults())

	engine := waf.NewEngine(config.DefaultWAFConfig(),
		waf.NewScanner(ruleService),
		services.NewIPListService(db),
		services.NewAuditService(db),
		nil,
	)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(IsAdminKey, true) })
	router.Use(WAF(engine))
	router.GET("/search", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "admin is never denied")

	var count int64
	assert.NoError(t, db.Model(&models.BlockedRequest{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "admin detections are still audited")
}
