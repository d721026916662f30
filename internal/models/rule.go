package models

import (
	"time"
)

// RuleCategory classifies what kind of attack a rule or heuristic detects.
type RuleCategory string

const (
	CategorySQLInjection     RuleCategory = "sql_injection"
	CategoryXSS              RuleCategory = "xss"
	CategoryFileInclusion    RuleCategory = "file_inclusion"
	CategoryCommandInjection RuleCategory = "command_injection"
	CategoryPathTraversal    RuleCategory = "path_traversal"
	CategoryLDAPInjection    RuleCategory = "ldap_injection"
	CategoryNullByte         RuleCategory = "null_byte"
	CategoryOther            RuleCategory = "other"

	// Heuristic-only categories, never attached to stored rules.
	CategoryDangerousUpload RuleCategory = "dangerous_file_upload"
	CategoryFileTooLarge    RuleCategory = "file_too_large"
	CategorySuspiciousFile  RuleCategory = "suspicious_file_type"
	CategoryBufferOverflow  RuleCategory = "buffer_overflow"
)

// RuleAction decides what the engine does on a match. Log-only rules record
// the detection but never deny the request.
type RuleAction string

const (
	ActionBlock RuleAction = "block"
	ActionLog   RuleAction = "log"
)

// RuleSeverity is used for display and evaluation ordering, not enforcement
// strength.
type RuleSeverity string

const (
	SeverityLow      RuleSeverity = "low"
	SeverityMedium   RuleSeverity = "medium"
	SeverityHigh     RuleSeverity = "high"
	SeverityCritical RuleSeverity = "critical"
)

var severityRank = map[RuleSeverity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank maps a severity to its numeric order. Unknown values sort last.
func (s RuleSeverity) Rank() int {
	return severityRank[s]
}

// Rule is a single pattern-based detection definition. Rules are toggled
// rather than deleted so audit history keeps pointing at a real definition.
type Rule struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	UUID      string       `json:"uuid" gorm:"uniqueIndex"`
	Name      string       `json:"name" gorm:"index"`
	Pattern   string       `json:"pattern" gorm:"type:text"`
	Category  RuleCategory `json:"category" gorm:"index"`
	Action    RuleAction   `json:"action"`
	Severity  RuleSeverity `json:"severity"`
	Enabled   bool         `json:"enabled"`
	CreatedAt time.Time    `json:"created_at"`
}
