package services

import (
	"fmt"
	"time"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/models"
)

// NotificationService fans security events out to configured external
// destinations. Delivery is best-effort: a broken provider is logged and
// skipped, never surfaced to the request path.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// ListProviders returns all configured providers.
func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	if err := s.db.Order("created_at desc").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

// CreateProvider stores a new destination.
func (s *NotificationService) CreateProvider(p *models.NotificationProvider) error {
	return s.db.Create(p).Error
}

// DeleteProvider removes a destination by id.
func (s *NotificationService) DeleteProvider(id string) error {
	result := s.db.Delete(&models.NotificationProvider{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// SendAutoBlock pushes an auto-blacklist event to every enabled provider
// that opted into auto-block notifications.
func (s *NotificationService) SendAutoBlock(ip, reason string) {
	var providers []models.NotificationProvider
	err := s.db.Where("enabled = ? AND notify_auto_block = ?", true, true).Find(&providers).Error
	if err != nil {
		logger.WithComponent("notifications").WithError(err).Warn("failed to fetch notification providers")
		return
	}

	msg := fmt.Sprintf("[Warden] %s auto-blacklisted at %s: %s", ip, time.Now().Format(time.RFC3339), reason)
	for _, provider := range providers {
		if err := shoutrrr.Send(provider.URL, msg); err != nil {
			logger.WithFields(map[string]interface{}{
				"component": "notifications",
				"provider":  provider.Name,
				"type":      provider.Type,
			}).WithError(err).Warn("failed to send auto-block notification")
		}
	}
}
