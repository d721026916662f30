package models

import (
	"time"
)

// BlockedRequest is one append-only audit record for a request that matched
// a rule or heuristic. Records are pruned by age by the retention job; there
// is no update path.
type BlockedRequest struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	UUID      string       `json:"uuid" gorm:"uniqueIndex"`
	IPAddress string       `json:"ip_address" gorm:"index"`
	Method    string       `json:"method"`
	URI       string       `json:"uri" gorm:"type:text"`
	Category  RuleCategory `json:"category" gorm:"index"`
	Details   string       `json:"details" gorm:"type:text"`
	UserAgent string       `json:"user_agent"`
	CreatedAt time.Time    `json:"blocked_time" gorm:"index"`
}
