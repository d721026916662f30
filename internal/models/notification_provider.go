package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationProvider holds one external destination (shoutrrr URL) that
// receives security events such as automatic blacklist additions.
type NotificationProvider struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name"`
	Type string `json:"type"` // discord, slack, gotify, telegram, generic
	URL  string `json:"url"`  // shoutrrr service URL

	Enabled         bool `json:"enabled"`
	NotifyAutoBlock bool `json:"notify_auto_block" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *NotificationProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}
