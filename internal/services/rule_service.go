package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
)

var (
	ErrRuleNotFound   = errors.New("rule not found")
	ErrInvalidPattern = errors.New("rule pattern does not compile")
)

// RuleService owns the prioritized detection rule set.
type RuleService struct {
	db *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

// Create validates and stores a new rule. The pattern must compile so a
// broken rule never reaches the evaluation path through the operator API.
func (s *RuleService) Create(rule *models.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := regexp.Compile(rule.Pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	rule.UUID = uuid.NewString()
	return s.db.Create(rule).Error
}

// List returns every rule, enabled or not, in evaluation order.
func (s *RuleService) List() ([]models.Rule, error) {
	var rules []models.Rule
	if err := s.db.Find(&rules).Error; err != nil {
		return nil, err
	}
	sortRules(rules)
	return rules, nil
}

// ListEnabled returns the rules the scanner evaluates, ordered by severity
// descending then name ascending so evaluation order is deterministic.
func (s *RuleService) ListEnabled() ([]models.Rule, error) {
	var rules []models.Rule
	if err := s.db.Where("enabled = ?", true).Find(&rules).Error; err != nil {
		return nil, err
	}
	sortRules(rules)
	return rules, nil
}

// Toggle enables or disables a rule. Rules are never physically deleted.
func (s *RuleService) Toggle(id uint, enabled bool) error {
	result := s.db.Model(&models.Rule{}).Where("id = ?", id).Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// GetByID retrieves a single rule.
func (s *RuleService) GetByID(id uint) (*models.Rule, error) {
	var rule models.Rule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// BootstrapDefaults seeds the built-in rule set. Idempotent: a non-empty
// store is left untouched.
func (s *RuleService) BootstrapDefaults() error {
	var count int64
	if err := s.db.Model(&models.Rule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, rule := range defaultRules() {
		rule.UUID = uuid.NewString()
		if err := s.db.Create(&rule).Error; err != nil {
			return fmt.Errorf("seed rule %q: %w", rule.Name, err)
		}
	}
	return nil
}

// sortRules orders by severity descending, then name ascending. Severity is
// stored as text, so ordering happens here rather than in SQL.
func sortRules(rules []models.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		ri, rj := rules[i].Severity.Rank(), rules[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return rules[i].Name < rules[j].Name
	})
}

// defaultRules is the built-in detection set seeded on first boot. Patterns
// embed (?i) so matching is case-insensitive regardless of payload casing.
func defaultRules() []models.Rule {
	return []models.Rule{
		{
			Name:     "SQL Injection - Common Patterns",
			Pattern:  `(?i)(union\s+(all\s+)?select|select\s+[\w*,\s]+\s+from|insert\s+into|delete\s+from|drop\s+(table|database)|'\s*(or|and)\s+'?\d+'?\s*=\s*'?\d+|;\s*--|(benchmark|sleep|waitfor)\s*\()`,
			Category: models.CategorySQLInjection,
			Action:   models.ActionBlock,
			Severity: models.SeverityCritical,
			Enabled:  true,
		},
		{
			Name:     "XSS - Script Tags",
			Pattern:  `(?i)<\s*script[^>]*>`,
			Category: models.CategoryXSS,
			Action:   models.ActionBlock,
			Severity: models.SeverityCritical,
			Enabled:  true,
		},
		{
			Name:     "XSS - Event Handlers",
			Pattern:  `(?i)\bon(abort|blur|change|click|dblclick|error|focus|load|mouse\w+|key\w+|submit|unload)\s*=`,
			Category: models.CategoryXSS,
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
			Enabled:  true,
		},
		{
			Name:     "Local File Inclusion",
			Pattern:  `(?i)(etc/(passwd|shadow|group)|proc/self/environ|boot\.ini|win\.ini|php://(filter|input)|(data|expect)://)`,
			Category: models.CategoryFileInclusion,
			Action:   models.ActionBlock,
			Severity: models.SeverityCritical,
			Enabled:  true,
		},
		{
			Name:     "Command Injection - Shell Commands",
			Pattern:  "(?i)([;&|]\\s*(cat|ls|id|pwd|whoami|uname|wget|curl|nc|netcat|bash|sh|cmd|powershell)\\b|\\$\\(|`[^`]+`)",
			Category: models.CategoryCommandInjection,
			Action:   models.ActionBlock,
			Severity: models.SeverityCritical,
			Enabled:  true,
		},
		{
			Name:     "Path Traversal Attack",
			Pattern:  `(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e%5c)`,
			Category: models.CategoryPathTraversal,
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
			Enabled:  true,
		},
		{
			Name:     "LDAP Injection",
			Pattern:  `(?i)(\(\s*[|&!]\s*\(|objectclass\s*=|\w+\s*=\s*\*\s*\))`,
			Category: models.CategoryLDAPInjection,
			Action:   models.ActionLog,
			Severity: models.SeverityMedium,
			Enabled:  true,
		},
		{
			Name:     "Null Byte Injection",
			Pattern:  `(%00|\x00|\\0)`,
			Category: models.CategoryNullByte,
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
			Enabled:  true,
		},
	}
}
