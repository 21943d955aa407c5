package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/config"
	"github.com/oggyb/cardlink/internal/db"
)

type fakeUsers map[uint64]*db.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (*db.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type brokenUsers struct{}

func (brokenUsers) GetByID(context.Context, uint64) (*db.User, error) {
	return nil, errors.New("connection refused")
}

func testIssuer() *Issuer {
	return NewIssuer(config.AuthConfig{JWTSecret: "s3cret", TokenTTL: time.Hour})
}

func TestIssueAndParse(t *testing.T) {
	iss := testIssuer()
	tok, exp, err := iss.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParse_RejectsExpiredAndForeignTokens(t *testing.T) {
	iss := testIssuer()
	tok, _, err := iss.Issue(1)
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewIssuer(config.AuthConfig{JWTSecret: "other", TokenTTL: time.Hour})
	foreign, _, err := other.Issue(1)
	require.NoError(t, err)
	_, err = testIssuer().Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "hunter22"))
	assert.False(t, CheckPassword(h, "hunter23"))
}

func TestAuthenticateAndRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := testIssuer()
	users := fakeUsers{
		1: {ID: 1, Role: db.RoleUser, IsActive: true},
		2: {ID: 2, Role: db.RoleAdmin, IsActive: true},
		3: {ID: 3, Role: db.RoleUser, IsActive: false},
	}

	r := gin.New()
	authed := r.Group("/", Authenticate(iss, users, true))
	authed.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": MustCurrent(c).UserID}) })
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(path string, userID uint64) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if userID != 0 {
			tok, _, err := iss.Issue(userID)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", 0))
	assert.Equal(t, http.StatusOK, do("/me", 1))
	assert.Equal(t, http.StatusForbidden, do("/me", 3))
	assert.Equal(t, http.StatusUnauthorized, do("/me", 99))
	assert.Equal(t, http.StatusForbidden, do("/admin", 1))
	assert.Equal(t, http.StatusNoContent, do("/admin", 2))
}

func TestAuthenticate_LookupFailureIsServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := testIssuer()
	r := gin.New()
	r.GET("/me", Authenticate(iss, brokenUsers{}, true), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok, _, err := iss.Issue(1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "something went wrong")
}
