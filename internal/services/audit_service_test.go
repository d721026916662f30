package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/internal/models"
)

func TestAuditService_Record(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuditService(db)

	record := &models.BlockedRequest{
		IPAddress: "203.0.113.7",
		Method:    "GET",
		URI:       "/search?q=test",
		Category:  models.CategorySQLInjection,
		Details:   `matched rule "SQL Injection - Common Patterns"`,
		UserAgent: "curl/8.0",
	}
	assert.NoError(t, service.Record(record))
	assert.NotEmpty(t, record.UUID)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestAuditService_CountSince(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuditService(db)

	now := time.Now()
	seed := []models.BlockedRequest{
		{UUID: "1", IPAddress: "203.0.113.7", Category: models.CategoryXSS, CreatedAt: now.Add(-10 * time.Minute)},
		{UUID: "2", IPAddress: "203.0.113.7", Category: models.CategoryXSS, CreatedAt: now.Add(-50 * time.Minute)},
		{UUID: "3", IPAddress: "203.0.113.7", Category: models.CategoryXSS, CreatedAt: now.Add(-2 * time.Hour)},
		{UUID: "4", IPAddress: "198.51.100.9", Category: models.CategoryXSS, CreatedAt: now.Add(-5 * time.Minute)},
	}
	for i := range seed {
		assert.NoError(t, db.Create(&seed[i]).Error)
	}

	count, err := service.CountSince("203.0.113.7", now.Add(-time.Hour))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, count, "only records inside the trailing window")

	count, err = service.CountSince("203.0.113.7", now.Add(-3*time.Hour))
	assert.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestAuditService_List(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuditService(db)

	now := time.Now()
	for i := 0; i < 5; i++ {
		r := models.BlockedRequest{
			UUID:      fmt.Sprintf("rec-%d", i),
			IPAddress: "203.0.113.7",
			Category:  models.CategorySQLInjection,
			CreatedAt: now.Add(time.Duration(-i) * time.Minute),
		}
		assert.NoError(t, db.Create(&r).Error)
	}
	other := models.BlockedRequest{UUID: "other", IPAddress: "198.51.100.9", Category: models.CategoryXSS, CreatedAt: now}
	assert.NoError(t, db.Create(&other).Error)

	t.Run("newest first with limit", func(t *testing.T) {
		records, err := service.List(ListFilter{Limit: 3})
		assert.NoError(t, err)
		assert.Len(t, records, 3)
		assert.True(t, !records[0].CreatedAt.Before(records[1].CreatedAt))
	})

	t.Run("filters by ip and category", func(t *testing.T) {
		records, err := service.List(ListFilter{IPAddress: "198.51.100.9"})
		assert.NoError(t, err)
		assert.Len(t, records, 1)

		records, err = service.List(ListFilter{Category: models.CategoryXSS})
		assert.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, "198.51.100.9", records[0].IPAddress)
	})
}

func TestAuditService_TopOffenders(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuditService(db)

	now := time.Now()
	for i := 0; i < 4; i++ {
		r := models.BlockedRequest{UUID: fmt.Sprintf("a-%d", i), IPAddress: "203.0.113.7", CreatedAt: now}
		assert.NoError(t, db.Create(&r).Error)
	}
	r := models.BlockedRequest{UUID: "b-0", IPAddress: "198.51.100.9", CreatedAt: now}
	assert.NoError(t, db.Create(&r).Error)

	offenders, err := service.TopOffenders(now.Add(-time.Hour), 10)
	assert.NoError(t, err)
	assert.Len(t, offenders, 2)
	assert.Equal(t, "203.0.113.7", offenders[0].IPAddress)
	assert.EqualValues(t, 4, offenders[0].Count)
}

func TestAuditService_PruneOlderThan(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuditService(db)

	now := time.Now()
	fresh := models.BlockedRequest{UUID: "fresh", IPAddress: "203.0.113.7", CreatedAt: now.Add(-24 * time.Hour)}
	stale := models.BlockedRequest{UUID: "stale", IPAddress: "203.0.113.7", CreatedAt: now.Add(-31 * 24 * time.Hour)}
	assert.NoError(t, db.Create(&fresh).Error)
	assert.NoError(t, db.Create(&stale).Error)

	pruned, err := service.PruneOlderThan(30 * 24 * time.Hour)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	records, err := service.List(ListFilter{})
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].UUID)
}
