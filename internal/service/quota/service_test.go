package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app/apptest"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/service/quota"
)

func intp(v int) *int { return &v }

func subscribe(t *testing.T, env *apptest.Env, userID uint64, f repository.PlanFeatures, expires time.Time) {
	t.Helper()
	features, err := repository.EncodeFeatures(f)
	require.NoError(t, err)
	plan := db.SubscriptionPlan{Name: "Pro", DurationDays: 30, Features: features, IsActive: true}
	require.NoError(t, env.App.DB.Create(&plan).Error)
	require.NoError(t, env.App.DB.Create(&db.UserSubscription{
		UserID: userID, PlanID: plan.ID, Status: db.SubscriptionActive,
		StartsAt: env.Clock.AddDate(0, 0, -1), ExpiresAt: expires,
	}).Error)
}

// reserveRequest mimics a creation: reserve then insert, in one tx.
func reserveRequest(env *apptest.Env, svc *quota.Service, userID uint64) error {
	ctx := context.Background()
	return env.App.DB.Transaction(func(tx *gorm.DB) error {
		if err := svc.Reserve(ctx, tx, userID, quota.KindRequest); err != nil {
			return err
		}
		return tx.Create(&db.ServiceRequest{CreatedByUserID: userID, CategoryID: 1, Title: "t", Status: db.RequestOpen}).Error
	})
}

func TestNoSubscriptionUsesFreeTier(t *testing.T) {
	env := apptest.New(t)
	u := env.NewUser(t, "alice", 0)
	svc := quota.NewService(env.App)

	limit, err := svc.Limit(context.Background(), u.User.ID, quota.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), limit)

	err = reserveRequest(env, svc, u.User.ID)
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded)

	var n int64
	env.App.DB.Model(&db.ServiceRequest{}).Count(&n)
	assert.Zero(t, n)
}

func TestConfiguredFreeTier(t *testing.T) {
	env := apptest.New(t)
	env.App.Config.Quota.FreeRequestsMonth = 1
	u := env.NewUser(t, "alice", 0)
	svc := quota.NewService(env.App)

	require.NoError(t, reserveRequest(env, svc, u.User.ID))
	assert.ErrorIs(t, reserveRequest(env, svc, u.User.ID), svcErr.ErrQuotaExceeded)
}

func TestSubscriptionQuotaIsEnforced(t *testing.T) {
	env := apptest.New(t)
	u := env.NewUser(t, "alice", 0)
	subscribe(t, env, u.User.ID, repository.PlanFeatures{RequestQuotaPerMonth: intp(2)}, env.Clock.AddDate(0, 1, 0))
	svc := quota.NewService(env.App)
	ctx := context.Background()

	require.NoError(t, reserveRequest(env, svc, u.User.ID))
	require.NoError(t, reserveRequest(env, svc, u.User.ID))
	assert.ErrorIs(t, reserveRequest(env, svc, u.User.ID), svcErr.ErrQuotaExceeded)

	st, err := svc.Check(ctx, u.User.ID, quota.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Used)
	assert.Equal(t, int64(2), st.Limit)
	assert.False(t, st.Allowed)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), st.ResetsAt)

	// Offer quota missing from the plan falls back to the free tier.
	limit, err := svc.Limit(ctx, u.User.ID, quota.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), limit)
}

func TestNewMonthResetsUsage(t *testing.T) {
	env := apptest.New(t)
	u := env.NewUser(t, "alice", 0)
	subscribe(t, env, u.User.ID, repository.PlanFeatures{RequestQuotaPerMonth: intp(1)}, env.Clock.AddDate(0, 3, 0))
	svc := quota.NewService(env.App)

	require.NoError(t, reserveRequest(env, svc, u.User.ID))
	assert.ErrorIs(t, reserveRequest(env, svc, u.User.ID), svcErr.ErrQuotaExceeded)

	env.Clock = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, reserveRequest(env, svc, u.User.ID))
}

func TestExpiredSubscriptionIsIgnored(t *testing.T) {
	env := apptest.New(t)
	u := env.NewUser(t, "alice", 0)
	subscribe(t, env, u.User.ID, repository.PlanFeatures{RequestQuotaPerMonth: intp(10)}, env.Clock.Add(-time.Minute))
	svc := quota.NewService(env.App)

	limit, err := svc.Limit(context.Background(), u.User.ID, quota.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), limit)
}

func TestCheckCountsRowsWithoutCounter(t *testing.T) {
	env := apptest.New(t)
	u := env.NewUser(t, "alice", 0)
	require.NoError(t, env.App.DB.Create(&db.ServiceRequest{CreatedByUserID: u.User.ID, CategoryID: 1, Title: "legacy", Status: db.RequestOpen}).Error)

	st, err := quota.NewService(env.App).Check(context.Background(), u.User.ID, quota.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Used)

	_, err = quota.NewService(env.App).Check(context.Background(), u.User.ID, "bogus")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}
