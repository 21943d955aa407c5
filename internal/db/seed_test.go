package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/cardlink/internal/app/apptest"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/logger"
	"github.com/oggyb/cardlink/internal/repository"
)

func count(t *testing.T, env *apptest.Env, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.App.DB.Model(model).Count(&n).Error)
	return n
}

func TestSeedDemoData_IsRepeatable(t *testing.T) {
	env := apptest.New(t)
	env.NewUser(t, "leftover", 3)

	for i := 0; i < 2; i++ {
		require.NoError(t, db.SeedDemoData(env.App.DB, logger.Discard()))
	}

	assert.Equal(t, int64(9), count(t, env, &db.User{}))
	assert.Equal(t, int64(8), count(t, env, &db.Profile{}))
	assert.Equal(t, int64(9), count(t, env, &db.CardCredit{}))
	assert.Equal(t, int64(8), count(t, env, &db.Follow{}))
	assert.Equal(t, int64(2), count(t, env, &db.SubscriptionPlan{}))
	assert.Equal(t, int64(1), count(t, env, &db.BankTransferInfo{}))
}

func TestSeedDemoData_ConsistentCountersAndLogins(t *testing.T) {
	env := apptest.New(t)
	require.NoError(t, db.SeedDemoData(env.App.DB, logger.Discard()))

	var profiles []db.Profile
	require.NoError(t, env.App.DB.Find(&profiles).Error)
	for _, p := range profiles {
		var followers, following int64
		env.App.DB.Model(&db.Follow{}).Where("following_id = ?", p.UserID).Count(&followers)
		env.App.DB.Model(&db.Follow{}).Where("follower_id = ?", p.UserID).Count(&following)
		assert.Equal(t, followers, p.FollowerCount, p.Slug)
		assert.Equal(t, following, p.FollowingCount, p.Slug)
	}

	var plans []db.SubscriptionPlan
	require.NoError(t, env.App.DB.Find(&plans).Error)
	for _, plan := range plans {
		f, err := repository.DecodeFeatures(plan.Features)
		require.NoError(t, err)
		require.NotNil(t, f.RequestQuotaPerMonth)
		assert.Positive(t, *f.RequestQuotaPerMonth)
	}

	admin, err := repository.NewUserRepository(env.App.DB).GetByLogin(t.Context(), "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, auth.CheckPassword(admin.PasswordHash, db.DemoPassword))
}
