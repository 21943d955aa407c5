package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("FREE_REQUEST_QUOTA", "")
	t.Setenv("QUOTA_TIMEZONE", "")

	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/cardlink")
	assert.Equal(t, 0, cfg.Quota.FreeRequestsMonth)
	assert.Equal(t, 0, cfg.Quota.FreeOffersMonth)
	assert.Equal(t, time.UTC, cfg.Quota.Location())
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "@every 10m", cfg.Jobs.SubscriptionSweep)
	assert.Equal(t, "@every 5m", cfg.Jobs.LimiterSweep)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("FREE_REQUEST_QUOTA", "3")
	t.Setenv("FREE_OFFER_QUOTA", "5")
	t.Setenv("QUOTA_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := New()

	assert.Equal(t, 3, cfg.Quota.FreeRequestsMonth)
	assert.Equal(t, 5, cfg.Quota.FreeOffersMonth)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Quota.Location().String())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/tmp/x.db", cfg.DB.DSN)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestQuotaLocation_BadZoneFallsBackToUTC(t *testing.T) {
	q := QuotaConfig{Timezone: "Mars/Olympus"}
	assert.Equal(t, time.UTC, q.Location())
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
