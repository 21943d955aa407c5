package marketplace_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/cardlink/internal/app/apptest"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
	"github.com/oggyb/cardlink/internal/service/marketplace"
	"github.com/oggyb/cardlink/internal/service/quota"
)

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func setup(t *testing.T, freeRequests, freeOffers int) (*apptest.Env, *marketplace.Service, db.Category) {
	t.Helper()
	env := apptest.New(t)
	env.App.Config.Quota.FreeRequestsMonth = freeRequests
	env.App.Config.Quota.FreeOffersMonth = freeOffers
	cat := db.Category{Name: "Photography", Slug: "photography"}
	require.NoError(t, env.App.DB.Create(&cat).Error)
	return env, marketplace.NewService(env.App, quota.NewService(env.App)), cat
}

func countRows(t *testing.T, env *apptest.Env, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.App.DB.Model(model).Count(&n).Error)
	return n
}

func TestCreateRequest_FreeTierZeroRejectsOverHTTP(t *testing.T) {
	env, _, cat := setup(t, 0, 0)
	alice := env.NewUser(t, "alice", 0)
	q := quota.NewService(env.App)
	router := server.NewRouter(env.App, marketplace.NewRegistrar(env.App, q), quota.NewRegistrar(q))

	w := apptest.Do(t, router, http.MethodPost, "/api/requests", env.Token(t, alice.User.ID),
		map[string]any{"categoryId": cat.ID, "title": "Wedding shoot"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "upgrade your plan")
	assert.Zero(t, countRows(t, env, &db.ServiceRequest{}))
}

func TestCreateRequest_QuotaCountsPerMonth(t *testing.T) {
	env, svc, cat := setup(t, 2, 0)
	alice := env.NewUser(t, "alice", 0)
	ctx := context.Background()
	in := marketplace.RequestInput{CategoryID: cat.ID, Title: "Logo design"}

	for i := 0; i < 2; i++ {
		req, err := svc.CreateRequest(ctx, alice.User.ID, in)
		require.NoError(t, err)
		assert.Equal(t, db.RequestOpen, req.Status)
	}
	_, err := svc.CreateRequest(ctx, alice.User.ID, in)
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded)

	env.Clock = env.Clock.AddDate(0, 1, 0)
	_, err = svc.CreateRequest(ctx, alice.User.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(3), countRows(t, env, &db.ServiceRequest{}))
}

func TestCreateRequest_Validation(t *testing.T) {
	env, svc, cat := setup(t, 5, 0)
	alice := env.NewUser(t, "alice", 0)
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: 999, Title: "Logo design"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
	_, err = svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "  "})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
	assert.Zero(t, countRows(t, env, &db.UsageCounter{}))
}

func TestOffers_Rules(t *testing.T) {
	env, svc, cat := setup(t, 5, 5)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "Wedding shoot"})
	require.NoError(t, err)

	_, err = svc.CreateOffer(ctx, alice.User.ID, req.ID, marketplace.OfferInput{Message: "me"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	price := decimal.RequireFromString("1500000")
	offer, err := svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Price: &price, Message: "Available that day"})
	require.NoError(t, err)
	assert.Equal(t, bob.Profile.ID, offer.ProfileID)
	assert.True(t, offer.Price.Valid)
	assert.True(t, price.Equal(offer.Price.Decimal))

	_, err = svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Message: "again"})
	assert.ErrorIs(t, err, svcErr.ErrConflict)

	neg := decimal.NewFromInt(-1)
	_, err = svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Price: &neg, Message: "x"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.ListOffers(ctx, auth.Principal{UserID: bob.User.ID}, req.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	offers, err := svc.ListOffers(ctx, auth.Principal{UserID: alice.User.ID}, req.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
	offers, err = svc.ListOffers(ctx, auth.Principal{UserID: 999, IsAdmin: true}, req.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestOffers_FreeTierZeroRejects(t *testing.T) {
	env, svc, cat := setup(t, 1, 0)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "Tutor"})
	require.NoError(t, err)
	_, err = svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Message: "I can help"})
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded)
	assert.Zero(t, countRows(t, env, &db.ServiceOffer{}))
}

func TestAcceptOffer_ClosesRequest(t *testing.T) {
	env, svc, cat := setup(t, 5, 5)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)
	carol := env.NewUser(t, "carol", 0)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "Video edit"})
	require.NoError(t, err)
	fromBob, err := svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Message: "bob here"})
	require.NoError(t, err)
	fromCarol, err := svc.CreateOffer(ctx, carol.User.ID, req.ID, marketplace.OfferInput{Message: "carol here"})
	require.NoError(t, err)

	_, err = svc.AcceptOffer(ctx, bob.User.ID, fromBob.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	accepted, err := svc.AcceptOffer(ctx, alice.User.ID, fromBob.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OfferAccepted, accepted.Status)

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, db.RequestClosed, got.Status)

	_, err = svc.AcceptOffer(ctx, alice.User.ID, fromBob.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyProcessed)

	// The request is closed, so the second offer cannot be accepted and stays pending.
	_, err = svc.AcceptOffer(ctx, alice.User.ID, fromCarol.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyProcessed)
	var still db.ServiceOffer
	require.NoError(t, env.App.DB.First(&still, fromCarol.ID).Error)
	assert.Equal(t, db.OfferPending, still.Status)

	_, err = svc.CreateOffer(ctx, carol.User.ID, req.ID, marketplace.OfferInput{Message: "late"})
	assert.ErrorIs(t, err, svcErr.ErrConflict)
}

func TestRejectAndWithdraw(t *testing.T) {
	env, svc, cat := setup(t, 5, 5)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)
	carol := env.NewUser(t, "carol", 0)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "Translation"})
	require.NoError(t, err)
	fromBob, err := svc.CreateOffer(ctx, bob.User.ID, req.ID, marketplace.OfferInput{Message: "bob"})
	require.NoError(t, err)
	fromCarol, err := svc.CreateOffer(ctx, carol.User.ID, req.ID, marketplace.OfferInput{Message: "carol"})
	require.NoError(t, err)

	_, err = svc.RejectOffer(ctx, carol.User.ID, fromBob.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	o, err := svc.RejectOffer(ctx, alice.User.ID, fromBob.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OfferRejected, o.Status)

	_, err = svc.WithdrawOffer(ctx, bob.User.ID, fromBob.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyProcessed)

	_, err = svc.WithdrawOffer(ctx, alice.User.ID, fromCarol.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	o, err = svc.WithdrawOffer(ctx, carol.User.ID, fromCarol.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OfferWithdrawn, o.Status)

	page, err := svc.MyRequests(ctx, alice.User.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Requests, 1)
	assert.Equal(t, int64(2), page.Requests[0].OfferCount)
	assert.Equal(t, int64(0), page.Requests[0].PendingOffers)

	mine, err := svc.MyOffers(ctx, carol.User.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, mine.Offers, 1)
	assert.Equal(t, fromCarol.ID, mine.Offers[0].ID)
}

func TestListRequests_Filters(t *testing.T) {
	env, svc, cat := setup(t, 10, 0)
	other := db.Category{Name: "Music", Slug: "music"}
	require.NoError(t, env.App.DB.Create(&other).Error)
	alice := env.NewUser(t, "alice", 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: cat.ID, Title: "Photo " + strconv.Itoa(i)})
		require.NoError(t, err)
	}
	music, err := svc.CreateRequest(ctx, alice.User.ID, marketplace.RequestInput{CategoryID: other.ID, Title: "Band"})
	require.NoError(t, err)
	_, err = svc.CloseRequest(ctx, alice.User.ID, music.ID)
	require.NoError(t, err)
	_, err = svc.CloseRequest(ctx, alice.User.ID, music.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyProcessed)

	open, err := svc.ListRequests(ctx, "", nil, nil, 10)
	require.NoError(t, err)
	assert.Len(t, open.Requests, 3)

	closed, err := svc.ListRequests(ctx, db.RequestClosed, &other.ID, nil, 10)
	require.NoError(t, err)
	assert.Len(t, closed.Requests, 1)

	all, err := svc.ListRequests(ctx, "all", nil, nil, 2)
	require.NoError(t, err)
	assert.Len(t, all.Requests, 2)
	assert.NotNil(t, all.NextPaginationToken)

	_, err = svc.ListRequests(ctx, "bogus", nil, nil, 10)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestHTTP_OfferFlow(t *testing.T) {
	env, _, cat := setup(t, 5, 5)
	alice := env.NewUser(t, "alice", 0)
	bob := env.NewUser(t, "bob", 0)
	router := server.NewRouter(env.App, marketplace.NewRegistrar(env.App, quota.NewService(env.App)))
	aliceTok, bobTok := env.Token(t, alice.User.ID), env.Token(t, bob.User.ID)

	w := apptest.Do(t, router, http.MethodPost, "/api/requests", aliceTok, map[string]any{"categoryId": cat.ID, "title": "Catering"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req db.ServiceRequest
	apptest.Decode(t, w, &req)

	w = apptest.Do(t, router, http.MethodGet, "/api/requests/"+itoa(req.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = apptest.Do(t, router, http.MethodPost, "/api/requests/"+itoa(req.ID)+"/offers", bobTok, map[string]any{"price": "250.50", "message": "Buffet for 50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var offer db.ServiceOffer
	apptest.Decode(t, w, &offer)

	w = apptest.Do(t, router, http.MethodGet, "/api/requests/"+itoa(req.ID)+"/offers", bobTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = apptest.Do(t, router, http.MethodPost, "/api/offers/"+itoa(offer.ID)+"/accept", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = apptest.Do(t, router, http.MethodPost, "/api/offers/"+itoa(offer.ID)+"/withdraw", bobTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
