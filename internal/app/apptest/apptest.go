// Package apptest builds an isolated AppContext for tests: in-memory
// SQLite with the full schema, miniredis, a discard logger and a pinned clock.
package apptest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/cache"
	"github.com/oggyb/cardlink/internal/config"
	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/logger"
)

// Env is one test's world.
type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
	// Clock is what App.Now and the DB timestamps read; tests may move it.
	Clock time.Time
}

// New spins up a fresh in-memory database and Redis for t.
func New(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &Env{Clock: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.Clock }

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        clock,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	env.Redis = mr
	env.App = app.New(cfg, gdb, cache.NewRedisCache(cfg), logger.Discard())
	env.App.Now = clock
	return env
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.DB.Driver = "sqlite"
	cfg.Auth = config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	cfg.Quota = config.QuotaConfig{Timezone: "UTC"}
	cfg.Analytics = config.AnalyticsConfig{RatePerSec: 1000, Burst: 1000, SummaryTTL: time.Minute, ViewDedupTTL: 30 * time.Minute}
	cfg.Storage = config.StorageConfig{Bucket: "test-proofs", Region: "ap-southeast-1", PresignTTL: 15 * time.Minute}
	return cfg
}

// UserOpt tweaks a fixture user before insert.
type UserOpt func(*db.User, *db.Profile)

func Admin() UserOpt { return func(u *db.User, _ *db.Profile) { u.Role = db.RoleAdmin } }

func Private() UserOpt { return func(_ *db.User, p *db.Profile) { p.IsPublic = false } }

func Inactive() UserOpt { return func(u *db.User, _ *db.Profile) { u.IsActive = false } }

// Fixture is a user with their profile.
type Fixture struct {
	User    db.User
	Profile db.Profile
}

// NewUser inserts an active user, a public profile and a credit row holding credits.
func (e *Env) NewUser(t *testing.T, username string, credits int64, opts ...UserOpt) Fixture {
	t.Helper()
	u := db.User{
		Email:        username + "@example.com",
		Username:     username,
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: "x",
		Role:         db.RoleUser,
		IsActive:     true,
	}
	p := db.Profile{Slug: username, DisplayName: u.FullName, IsPublic: true}
	for _, o := range opts {
		o(&u, &p)
	}
	require.NoError(t, e.App.DB.Create(&u).Error)
	p.UserID = u.ID
	require.NoError(t, e.App.DB.Create(&p).Error)
	require.NoError(t, e.App.DB.Create(&db.CardCredit{UserID: u.ID, Amount: credits}).Error)
	return Fixture{User: u, Profile: p}
}

// Token issues a bearer token for userID.
func (e *Env) Token(t *testing.T, userID uint64) string {
	t.Helper()
	tok, _, err := e.App.Tokens.Issue(userID)
	require.NoError(t, err)
	return tok
}

// Do sends a JSON request through h. token may be empty.
func Do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals a recorder body into v.
func Decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
