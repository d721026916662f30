package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
)

// AuditService appends and queries the blocked-request log. The log is
// write-heavy on the request path and read by dashboards and the
// auto-block counter.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one blocked-request entry.
func (s *AuditService) Record(r *models.BlockedRequest) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.db.Create(r).Error
}

// CountSince returns how many records exist for ip with a blocked_time at
// or after since. Feeds the rolling-window auto-block decision.
func (s *AuditService) CountSince(ip string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.BlockedRequest{}).
		Where("ip_address = ? AND created_at >= ?", ip, since).
		Count(&count).Error
	return count, err
}

// ListFilter narrows dashboard queries. Zero values mean "no filter".
type ListFilter struct {
	IPAddress string
	Category  models.RuleCategory
	Limit     int
	Offset    int
}

// List returns audit records newest first.
func (s *AuditService) List(filter ListFilter) ([]models.BlockedRequest, error) {
	q := s.db.Order("created_at desc, id desc")
	if filter.IPAddress != "" {
		q = q.Where("ip_address = ?", filter.IPAddress)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var records []models.BlockedRequest
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// OffenderCount aggregates blocked requests per source address.
type OffenderCount struct {
	IPAddress string `json:"ip_address"`
	Count     int64  `json:"count"`
}

// TopOffenders returns the addresses with the most blocked requests since
// the given time, busiest first.
func (s *AuditService) TopOffenders(since time.Time, limit int) ([]OffenderCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var offenders []OffenderCount
	err := s.db.Model(&models.BlockedRequest{}).
		Select("ip_address, count(*) as count").
		Where("created_at >= ?", since).
		Group("ip_address").
		Order("count desc").
		Limit(limit).
		Scan(&offenders).Error
	if err != nil {
		return nil, err
	}
	return offenders, nil
}

// PruneOlderThan deletes records older than age and returns how many rows
// went away. Invoked by the retention scheduler, never on the request path.
func (s *AuditService) PruneOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.BlockedRequest{})
	return result.RowsAffected, result.Error
}
