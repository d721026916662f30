package waf

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/models"
)

// Threat is the outcome of a rule or heuristic match. Transient: produced
// by the scanner or heuristics and consumed immediately by the engine.
type Threat struct {
	Category models.RuleCategory
	Details  string
	Action   models.RuleAction
	Severity models.RuleSeverity
}

// RuleSource supplies the enabled rule set in evaluation order.
type RuleSource interface {
	ListEnabled() ([]models.Rule, error)
}

// Scanner evaluates the rule set against built payloads. Compiled patterns
// are cached per rule id+pattern; Go's regexp is RE2, so evaluation is
// linear in the payload and a hostile payload cannot stall a request via
// catastrophic backtracking.
type Scanner struct {
	rules RuleSource

	mu        sync.Mutex
	compiled  map[uint]compiledRule
	badLogged map[uint]bool
}

type compiledRule struct {
	pattern string
	re      *regexp.Regexp
}

func NewScanner(rules RuleSource) *Scanner {
	return &Scanner{
		rules:     rules,
		compiled:  make(map[uint]compiledRule),
		badLogged: make(map[uint]bool),
	}
}

// Scan evaluates enabled rules in order and returns the first match, or nil
// when nothing matches. An uncompilable pattern is treated as a non-match
// and logged once, never aborting the scan. A storage failure while
// listing rules also yields nil: the heuristics still run.
func (s *Scanner) Scan(payload string) *Threat {
	rules, err := s.rules.ListEnabled()
	if err != nil {
		logger.WithComponent("waf").WithError(err).Warn("rule lookup failed, skipping rule scan")
		return nil
	}

	for _, rule := range rules {
		re := s.compile(rule)
		if re == nil {
			continue
		}
		if re.MatchString(payload) {
			return &Threat{
				Category: rule.Category,
				Details:  fmt.Sprintf("matched rule %q", rule.Name),
				Action:   rule.Action,
				Severity: rule.Severity,
			}
		}
	}
	return nil
}

func (s *Scanner) compile(rule models.Rule) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.compiled[rule.ID]; ok && c.pattern == rule.Pattern {
		return c.re
	}

	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		if !s.badLogged[rule.ID] {
			logger.WithFields(map[string]interface{}{
				"component": "waf",
				"rule_id":   rule.ID,
				"rule_name": rule.Name,
			}).WithError(err).Error("rule pattern does not compile, rule skipped")
			s.badLogged[rule.ID] = true
		}
		s.compiled[rule.ID] = compiledRule{pattern: rule.Pattern, re: nil}
		return nil
	}

	s.compiled[rule.ID] = compiledRule{pattern: rule.Pattern, re: re}
	delete(s.badLogged, rule.ID)
	return re
}
