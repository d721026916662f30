package models

import (
	"time"
)

// ListType distinguishes the two reputation lists. Whitelist membership
// always wins over blacklist membership.
type ListType string

const (
	ListTypeWhitelist ListType = "whitelist"
	ListTypeBlacklist ListType = "blacklist"
)

// IPListEntry records one address on one reputation list together with why
// and by whom it was added. The composite unique index enforces at most one
// active entry per (address, list) pair, which is what makes the auto-block
// add idempotent under concurrent threshold crossings.
type IPListEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	IPAddress string    `json:"ip_address" gorm:"index:idx_ip_list_entry,unique"`
	ListType  ListType  `json:"list_type" gorm:"index:idx_ip_list_entry,unique"`
	Reason    string    `json:"reason" gorm:"type:text"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"added_time"`
}
