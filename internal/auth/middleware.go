package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
)

// Principal is the authenticated caller as loaded from the users table.
type Principal struct {
	UserID  uint64
	IsAdmin bool
}

// UserLookup loads the current state of a user; roles are never trusted
// from the token itself.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*db.User, error)
}

const principalKey = "auth.principal"

// Authenticate resolves the bearer token when one is present. With
// required=false, anonymous requests pass through without a principal.
func Authenticate(issuer *Issuer, users UserLookup, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				svcErr.Respond(c, svcErr.Unauthenticated("authorization header required"))
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			svcErr.Respond(c, svcErr.Unauthenticated("invalid token format (must be Bearer)"))
			return
		}
		userID, err := issuer.Parse(token)
		if err != nil {
			svcErr.Respond(c, svcErr.Unauthenticated(err.Error()))
			return
		}
		user, err := users.GetByID(c.Request.Context(), userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			svcErr.Respond(c, svcErr.Unauthenticated("account no longer exists"))
			return
		} else if err != nil {
			svcErr.Respond(c, fmt.Errorf("load caller %d: %w", userID, err))
			return
		}
		if !user.IsActive {
			svcErr.Respond(c, svcErr.Forbidden("account is disabled"))
			return
		}

		c.Set(principalKey, Principal{UserID: user.ID, IsAdmin: user.IsAdmin()})
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Current(c)
		if !ok {
			svcErr.Respond(c, svcErr.Unauthenticated(""))
			return
		}
		if !p.IsAdmin {
			svcErr.Respond(c, svcErr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

// Current returns the caller, if any.
func Current(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// MustCurrent is for handlers mounted behind a required Authenticate.
func MustCurrent(c *gin.Context) Principal {
	p, _ := Current(c)
	return p
}
