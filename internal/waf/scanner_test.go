package waf

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&models.Rule{},
		&models.IPListEntry{},
		&models.BlockedRequest{},
		&models.NotificationProvider{},
	)
	assert.NoError(t, err)

	return db
}

func defaultScanner(t *testing.T) (*Scanner, *services.RuleService) {
	t.Helper()
	db := setupTestDB(t)
	rules := services.NewRuleService(db)
	assert.NoError(t, rules.BootstrapDefaults())
	return NewScanner(rules), rules
}

func TestScanner_DefaultRules(t *testing.T) {
	scanner, _ := defaultScanner(t)

	tests := []struct {
		name     string
		payload  string
		category models.RuleCategory
		action   models.RuleAction
	}{
		{
			name:     "union select",
			payload:  "id=1 UNION SELECT user,pass FROM users",
			category: models.CategorySQLInjection,
			action:   models.ActionBlock,
		},
		{
			name:     "script tag",
			payload:  "comment=<script>alert(1)</script>",
			category: models.CategoryXSS,
			action:   models.ActionBlock,
		},
		{
			name:     "event handler",
			payload:  `img=<img src=x onerror=alert(1)>`,
			category: models.CategoryXSS,
			action:   models.ActionBlock,
		},
		{
			name:     "local file inclusion",
			payload:  "page=php://filter/convert.base64-encode/resource=index",
			category: models.CategoryFileInclusion,
			action:   models.ActionBlock,
		},
		{
			name:     "command injection",
			payload:  "host=localhost; cat /tmp/secrets",
			category: models.CategoryCommandInjection,
			action:   models.ActionBlock,
		},
		{
			name:     "encoded traversal",
			payload:  "file=%2e%2e%2f%2e%2e%2fconfig",
			category: models.CategoryPathTraversal,
			action:   models.ActionBlock,
		},
		{
			name:     "ldap filter is log-only",
			payload:  "user=admin)(|(objectClass=*)",
			category: models.CategoryLDAPInjection,
			action:   models.ActionLog,
		},
		{
			name:     "null byte",
			payload:  "file=shell.php%00.jpg",
			category: models.CategoryNullByte,
			action:   models.ActionBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threat := scanner.Scan(tt.payload)
			assert.NotNil(t, threat)
			assert.Equal(t, tt.category, threat.Category)
			assert.Equal(t, tt.action, threat.Action)
			assert.NotContains(t, threat.Details, "(?i)", "details must not leak the pattern")
		})
	}

	t.Run("benign payload matches nothing", func(t *testing.T) {
		assert.Nil(t, scanner.Scan("q=hello world /search Mozilla/5.0"))
	})
}

func TestScanner_Determinism(t *testing.T) {
	scanner, _ := defaultScanner(t)

	payload := "id=1 UNION SELECT user,pass FROM users"
	first := scanner.Scan(payload)
	assert.NotNil(t, first)
	for i := 0; i < 5; i++ {
		again := scanner.Scan(payload)
		assert.Equal(t, first, again)
	}
}

func TestScanner_InvalidPatternSkipped(t *testing.T) {
	db := setupTestDB(t)
	rules := services.NewRuleService(db)

	// Insert directly so service-level validation cannot reject the broken
	// pattern; evaluation must tolerate what validation didn't catch.
	broken := models.Rule{
		UUID: "broken", Name: "AAA Broken", Pattern: "([unclosed",
		Category: models.CategoryOther, Action: models.ActionBlock,
		Severity: models.SeverityCritical, Enabled: true,
	}
	assert.NoError(t, db.Create(&broken).Error)
	good := models.Rule{
		UUID: "good", Name: "BBB Script", Pattern: `(?i)<script`,
		Category: models.CategoryXSS, Action: models.ActionBlock,
		Severity: models.SeverityCritical, Enabled: true,
	}
	assert.NoError(t, db.Create(&good).Error)

	scanner := NewScanner(rules)
	threat := scanner.Scan("x=<script>alert(1)</script>")
	assert.NotNil(t, threat, "scan continues past an uncompilable rule")
	assert.Equal(t, models.CategoryXSS, threat.Category)
}

func TestScanner_FirstMatchWins(t *testing.T) {
	scanner, rules := defaultScanner(t)

	// Payload trips both the critical LFI rule and the high traversal rule;
	// evaluation order (severity desc, name asc) must pick LFI.
	threat := scanner.Scan("page=../../etc/passwd")
	assert.NotNil(t, threat)
	assert.Equal(t, models.CategoryFileInclusion, threat.Category)

	// With LFI disabled the traversal rule catches the same payload.
	all, err := rules.List()
	assert.NoError(t, err)
	for _, r := range all {
		if r.Category == models.CategoryFileInclusion {
			assert.NoError(t, rules.Toggle(r.ID, false))
		}
	}
	threat = scanner.Scan("page=../../etc/passwd")
	assert.NotNil(t, threat)
	assert.Equal(t, models.CategoryPathTraversal, threat.Category)
}

func TestBuildPayload(t *testing.T) {
	t.Run("joins decoded query, body, path and user agent", func(t *testing.T) {
		r := &RequestInfo{
			Method:    "POST",
			Path:      "/submit",
			RawQuery:  "q=hello+world",
			Body:      url.Values{"comment": {"nice%20post"}},
			UserAgent: "curl/8.0",
		}
		assert.Equal(t, "q=hello world nice post /submit curl/8.0", BuildPayload(r))
	})

	t.Run("excludes csrf-like fields", func(t *testing.T) {
		r := &RequestInfo{
			Path: "/form",
			Body: url.Values{
				"csrf_token": {"<script>sneaky</script>"},
				"_wpnonce":   {"abc123"},
				"message":    {"hello"},
			},
		}
		payload := BuildPayload(r)
		assert.NotContains(t, payload, "sneaky")
		assert.NotContains(t, payload, "abc123")
		assert.Contains(t, payload, "hello")
	})

	t.Run("body keys walk in sorted order", func(t *testing.T) {
		r := &RequestInfo{
			Body: url.Values{"b": {"2"}, "a": {"1"}, "c": {"3"}},
			Path: "/p",
		}
		assert.Equal(t, BuildPayload(r), BuildPayload(r))
		assert.Equal(t, "1 2 3 /p", BuildPayload(r))
	})

	t.Run("malformed escapes fall back to the raw value", func(t *testing.T) {
		r := &RequestInfo{RawQuery: "q=%zz<script>"}
		assert.Contains(t, BuildPayload(r), "<script>")
	})
}
