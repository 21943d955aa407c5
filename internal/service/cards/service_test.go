package cards_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app/apptest"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/server"
	"github.com/oggyb/cardlink/internal/service/cards"
)

func balance(t *testing.T, env *apptest.Env, userID uint64) int64 {
	t.Helper()
	b, err := repository.NewCreditRepository(env.App.DB).Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func cardCount(t *testing.T, env *apptest.Env) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.App.DB.Model(&db.CardSend{}).Count(&n).Error)
	return n
}

func TestSend_LastCreditThenRejected(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 1)
	bob := env.NewUser(t, "bob", 0)
	svc := cards.NewService(env.App)
	ctx := context.Background()

	card, err := svc.Send(ctx, alice.User.ID, bob.User.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, alice.Profile.ID, card.ProfileID)
	assert.False(t, card.Viewed)
	assert.Nil(t, card.ViewedAt)
	assert.Equal(t, int64(0), balance(t, env, alice.User.ID))

	_, err = svc.Send(ctx, alice.User.ID, bob.User.ID, nil)
	assert.ErrorIs(t, err, svcErr.ErrInsufficientCredit)
	assert.Equal(t, int64(0), balance(t, env, alice.User.ID))
	assert.Equal(t, int64(1), cardCount(t, env))
}

func TestSend_ZeroBalanceWritesNothing(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)

	_, err := cards.NewService(env.App).Send(context.Background(), alice.User.ID, bob.User.ID, nil)
	assert.ErrorIs(t, err, svcErr.ErrInsufficientCredit)
	assert.Equal(t, int64(0), balance(t, env, alice.User.ID))
	assert.Zero(t, cardCount(t, env))
}

func TestSend_Validation(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 5)
	bob := env.NewUser(t, "bob", 0)
	gone := env.NewUser(t, "gone", 0, apptest.Inactive())
	svc := cards.NewService(env.App)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice.User.ID, alice.User.ID, nil)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.Send(ctx, alice.User.ID, 999, nil)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = svc.Send(ctx, alice.User.ID, gone.User.ID, nil)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = svc.Send(ctx, alice.User.ID, bob.User.ID, &bob.Profile.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	assert.Equal(t, int64(5), balance(t, env, alice.User.ID))
	assert.Zero(t, cardCount(t, env))
}

func TestMarkViewed_OnlyOnce(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 2)
	bob := env.NewUser(t, "bob", 0)
	svc := cards.NewService(env.App)
	ctx := context.Background()

	card, err := svc.Send(ctx, alice.User.ID, bob.User.ID, nil)
	require.NoError(t, err)

	_, err = svc.MarkViewed(ctx, card.ID, alice.User.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	first, err := svc.MarkViewed(ctx, card.ID, bob.User.ID)
	require.NoError(t, err)
	assert.True(t, first.Viewed)
	require.NotNil(t, first.ViewedAt)
	assert.True(t, env.Clock.Equal(*first.ViewedAt))

	env.Clock = env.Clock.Add(time.Hour)
	second, err := svc.MarkViewed(ctx, card.ID, bob.User.ID)
	require.NoError(t, err)
	assert.True(t, second.Viewed)
	assert.True(t, first.ViewedAt.Equal(*second.ViewedAt))

	_, err = svc.MarkViewed(ctx, 12345, bob.User.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInboxPagination(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 30)
	bob := env.NewUser(t, "bob", 0)
	svc := cards.NewService(env.App)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		env.Clock = env.Clock.Add(time.Second)
		_, err := svc.Send(ctx, alice.User.ID, bob.User.ID, nil)
		require.NoError(t, err)
	}

	page, err := svc.Inbox(ctx, bob.User.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, page.Cards, 20)
	require.NotNil(t, page.NextPaginationToken)
	assert.True(t, page.Cards[0].CreatedAt.After(page.Cards[19].CreatedAt))

	rest, err := svc.Inbox(ctx, bob.User.ID, page.NextPaginationToken, 0)
	require.NoError(t, err)
	assert.Len(t, rest.Cards, 5)
	assert.Nil(t, rest.NextPaginationToken)

	sent, err := svc.Sent(ctx, alice.User.ID, nil, 100)
	require.NoError(t, err)
	assert.Len(t, sent.Cards, 25)

	bad := "%%%"
	_, err = svc.Inbox(ctx, bob.User.ID, &bad, 0)
	assert.Error(t, err)
}

func TestHTTP_SendAndBalance(t *testing.T) {
	env := apptest.New(t)
	alice := env.NewUser(t, "alice", 1)
	bob := env.NewUser(t, "bob", 0)
	router := server.NewRouter(env.App, cards.NewRegistrar(env.App))
	tok := env.Token(t, alice.User.ID)

	w := apptest.Do(t, router, http.MethodPost, "/api/cards", tok, map[string]any{"receiverId": bob.User.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = apptest.Do(t, router, http.MethodPost, "/api/cards", tok, map[string]any{"receiverId": bob.User.ID})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = apptest.Do(t, router, http.MethodGet, "/api/credits/balance", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var b cards.Balance
	apptest.Decode(t, w, &b)
	assert.Equal(t, int64(0), b.Credits)

	w = apptest.Do(t, router, http.MethodGet, "/api/cards/inbox", env.Token(t, bob.User.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page cards.Page
	apptest.Decode(t, w, &page)
	assert.Len(t, page.Cards, 1)

	w = apptest.Do(t, router, http.MethodGet, "/api/cards/inbox", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
