package services

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/models"
)

var (
	ErrInvalidIPAddress = errors.New("invalid IP address")
	ErrEntryExists      = errors.New("IP is already on this list")
	ErrEntryNotFound    = errors.New("IP list entry not found")
)

// SystemIdentity marks entries created by the enforcement engine rather
// than a human operator.
const SystemIdentity = "system:waf"

// IPListService maintains the allow/deny reputation lists.
type IPListService struct {
	db *gorm.DB
}

func NewIPListService(db *gorm.DB) *IPListService {
	return &IPListService{db: db}
}

// IsAllowed reports whether requests from ip may proceed past the list
// check. Whitelist membership always wins. Storage errors fail open: an
// unreadable list never denies a request, the scan still runs.
func (s *IPListService) IsAllowed(ip string) bool {
	if s.onList(ip, models.ListTypeWhitelist) {
		return true
	}
	return !s.onList(ip, models.ListTypeBlacklist)
}

func (s *IPListService) onList(ip string, listType models.ListType) bool {
	var count int64
	err := s.db.Model(&models.IPListEntry{}).
		Where("ip_address = ? AND list_type = ?", ip, listType).
		Count(&count).Error
	if err != nil {
		logger.WithComponent("ip-list").WithError(err).Warn("list lookup failed, failing open")
		return false
	}
	return count > 0
}

// Add places an address on a list. Malformed literals are rejected before
// any state changes. A duplicate add surfaces ErrEntryExists, which the
// auto-block path treats as success.
func (s *IPListService) Add(ip string, listType models.ListType, reason, addedBy string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidIPAddress, ip)
	}
	if listType != models.ListTypeWhitelist && listType != models.ListTypeBlacklist {
		return fmt.Errorf("invalid list type %q", listType)
	}

	entry := models.IPListEntry{
		UUID:      uuid.NewString(),
		IPAddress: ip,
		ListType:  listType,
		Reason:    reason,
		AddedBy:   addedBy,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		// The composite unique index resolves concurrent adds; the loser
		// sees a constraint violation rather than a duplicate row.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrEntryExists
		}
		return err
	}
	return nil
}

// Remove deletes an entry by id. Operator action only; the engine never
// removes entries.
func (s *IPListService) Remove(id uint) error {
	result := s.db.Delete(&models.IPListEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// List returns one list's entries, newest first.
func (s *IPListService) List(listType models.ListType) ([]models.IPListEntry, error) {
	var entries []models.IPListEntry
	err := s.db.Where("list_type = ?", listType).
		Order("created_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
