package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/api/handlers"
	"github.com/wardenhq/warden/internal/api/middleware"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
	"github.com/wardenhq/warden/internal/waf"
)

// Register wires up API routes, performs automatic migrations, and seeds
// the default rule set.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&models.Rule{},
		&models.IPListEntry{},
		&models.BlockedRequest{},
		&models.NotificationProvider{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	ruleService := services.NewRuleService(db)
	if err := ruleService.BootstrapDefaults(); err != nil {
		return fmt.Errorf("bootstrap default rules: %w", err)
	}

	ipListService := services.NewIPListService(db)
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db)
	authService := services.NewAuthService(cfg)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/api/v1/health", handlers.HealthHandler)

	engine := waf.NewEngine(cfg.WAF, waf.NewScanner(ruleService), ipListService, auditService, notificationService)

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(authService))
	api.Use(middleware.WAF(engine))

	authHandler := handlers.NewAuthHandler(authService)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.RequireAdmin())
	{
		ruleHandler := handlers.NewRuleHandler(db)
		protected.GET("/rules", ruleHandler.List)
		protected.POST("/rules", ruleHandler.Create)
		protected.PATCH("/rules/:id", ruleHandler.Toggle)

		ipListHandler := handlers.NewIPListHandler(db)
		protected.GET("/ip-lists/:type", ipListHandler.List)
		protected.POST("/ip-lists", ipListHandler.Create)
		protected.DELETE("/ip-lists/:id", ipListHandler.Delete)

		auditHandler := handlers.NewAuditHandler(db)
		protected.GET("/audit/blocked", auditHandler.List)
		protected.GET("/audit/offenders", auditHandler.TopOffenders)

		providerHandler := handlers.NewNotificationProviderHandler(notificationService)
		protected.GET("/notifications/providers", providerHandler.List)
		protected.POST("/notifications/providers", providerHandler.Create)
		protected.DELETE("/notifications/providers/:id", providerHandler.Delete)
	}

	return nil
}
