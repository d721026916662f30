package waf

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
)

// IPList is the reputation-list surface the engine consumes.
type IPList interface {
	IsAllowed(ip string) bool
	Add(ip string, listType models.ListType, reason, addedBy string) error
}

// AuditLog is the blocked-request log surface the engine consumes.
type AuditLog interface {
	Record(r *models.BlockedRequest) error
	CountSince(ip string, since time.Time) (int64, error)
}

// Notifier receives auto-block events. Optional.
type Notifier interface {
	SendAutoBlock(ip, reason string)
}

// Verdict is the engine's terminal decision for one request. The HTTP
// layer translates a deny into a 403; Reason names the threat category but
// never the matched pattern.
type Verdict struct {
	Allow     bool
	Monitored bool // a log-only detection fired; request proceeds
	Category  models.RuleCategory
	Reason    string
}

func allowVerdict() Verdict {
	return Verdict{Allow: true}
}

func denyVerdict(category models.RuleCategory, reason string) Verdict {
	return Verdict{Allow: false, Category: category, Reason: reason}
}

// Engine orchestrates the per-request decision: list check, rule scan,
// heuristics, audit write, auto-block escalation. Stateless across
// requests except through the list and the audit log, so one Engine serves
// all requests concurrently.
type Engine struct {
	cfg      config.WAFConfig
	scanner  *Scanner
	ipList   IPList
	audit    AuditLog
	notifier Notifier
}

func NewEngine(cfg config.WAFConfig, scanner *Scanner, ipList IPList, audit AuditLog, notifier Notifier) *Engine {
	return &Engine{
		cfg:      cfg,
		scanner:  scanner,
		ipList:   ipList,
		audit:    audit,
		notifier: notifier,
	}
}

// Inspect runs the full decision for one request.
func (e *Engine) Inspect(r *RequestInfo) Verdict {
	if !e.cfg.Enabled {
		return allowVerdict()
	}

	// A blacklisted address was audited when it was listed; deny without
	// scanning and without a new audit record.
	if !e.ipList.IsAllowed(r.ClientIP) {
		return denyVerdict("", "address is blacklisted")
	}

	threat := e.scanner.Scan(BuildPayload(r))
	if threat == nil {
		threat = CheckRequest(r, HeuristicsConfig{
			CheckUploads:    e.cfg.CheckUploads,
			MaxUploadBytes:  e.cfg.MaxUploadBytes,
			MaxRequestBytes: e.cfg.MaxRequestBytes,
		})
	}
	if threat == nil {
		return allowVerdict()
	}

	return e.handleThreat(r, threat)
}

// handleThreat audits the detection, escalates repeat offenders, and maps
// the threat action to a verdict. Admins are never denied, but their
// detections are still audited and counted.
func (e *Engine) handleThreat(r *RequestInfo, threat *Threat) Verdict {
	log := logger.WithFields(map[string]interface{}{
		"component": "waf",
		"client_ip": r.ClientIP,
		"category":  threat.Category,
		"action":    threat.Action,
	})

	uri := r.Path
	if r.RawQuery != "" {
		uri = r.Path + "?" + r.RawQuery
	}
	record := &models.BlockedRequest{
		IPAddress: r.ClientIP,
		Method:    r.Method,
		URI:       uri,
		Category:  threat.Category,
		Details:   threat.Details,
		UserAgent: r.UserAgent,
	}
	// The verdict already computed stands even when the audit write fails;
	// the failure is logged and swallowed.
	if err := e.audit.Record(record); err != nil {
		log.WithError(err).Warn("audit write failed")
	}

	e.maybeAutoBlock(r.ClientIP, log)

	if threat.Action == models.ActionLog {
		log.Info("threat detected, log-only rule, request allowed")
		return Verdict{Allow: true, Monitored: true, Category: threat.Category}
	}

	if r.IsAdmin {
		log.Info("threat detected, administrator bypass, request allowed")
		return Verdict{Allow: true, Monitored: true, Category: threat.Category}
	}

	log.Warn("request blocked")
	return denyVerdict(threat.Category, fmt.Sprintf("request blocked: %s", threat.Category))
}

func (e *Engine) maybeAutoBlock(ip string, log *logrus.Entry) {
	count, err := e.audit.CountSince(ip, time.Now().Add(-e.cfg.AutoBlockWindow))
	if err != nil {
		log.WithError(err).Warn("auto-block count failed")
		return
	}
	if count < e.cfg.AutoBlockThreshold {
		return
	}

	reason := fmt.Sprintf("Auto-blocked after %d threats within %s", count, e.cfg.AutoBlockWindow)
	err = e.ipList.Add(ip, models.ListTypeBlacklist, reason, services.SystemIdentity)
	if errors.Is(err, services.ErrEntryExists) {
		// A concurrent request already listed this address.
		return
	}
	if err != nil {
		log.WithError(err).Warn("auto-block add failed")
		return
	}

	metrics.IncWAFAutoBlocked()
	logger.WithFields(map[string]interface{}{
		"component": "waf",
		"client_ip": ip,
		"threats":   count,
	}).Warn("address auto-blacklisted")
	if e.notifier != nil {
		e.notifier.SendAutoBlock(ip, reason)
	}
}
