package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/database"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/server"
	"github.com/wardenhq/warden/internal/services"
	"github.com/wardenhq/warden/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Log to both stdout and a rotated file next to the database.
	logDir := filepath.Join(filepath.Dir(cfg.DatabasePath), "logs")
	_ = os.MkdirAll(logDir, 0o755)
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "warden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Environment == "development", io.MultiWriter(os.Stdout, rotator))

	logger.Log().Infof("starting %s %s", version.Name, version.Full())

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	// Retention: prune audit records past their age daily. Scheduling lives
	// here; the delete-by-age operation belongs to the audit service.
	auditService := services.NewAuditService(db)
	scheduler := cron.New()
	_, err = scheduler.AddFunc("@daily", func() {
		pruned, err := auditService.PruneOlderThan(cfg.WAF.RetentionAge)
		if err != nil {
			logger.WithComponent("retention").WithError(err).Error("audit prune failed")
			return
		}
		logger.WithComponent("retention").Infof("pruned %d audit records", pruned)
	})
	if err != nil {
		log.Fatalf("schedule retention job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log().Infof("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
