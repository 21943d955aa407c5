package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
)

// maxSlugAttempts bounds the suffix search when a username's slug is taken.
const maxSlugAttempts = 50

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	credits  *repository.CreditRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		credits:  repository.NewCreditRepository(appCtx.DB),
	}
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"fullName" binding:"max=128"`
}

// Session is what a successful sign-up or login hands back.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      db.User   `json:"user"`
}

// Register creates the user, their public profile and an empty credit
// balance in one transaction, then signs them in.
func (s *Service) Register(ctx context.Context, in Registration) (*Session, error) {
	s.appCtx.Logger.Debug("Register called", "username", in.Username)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	taken, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, svcErr.Conflict("email or username is already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Email:        in.Email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         db.RoleUser,
		IsActive:     true,
	}
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, &user); err != nil {
			return err
		}
		profiles := s.profiles.WithTx(tx)
		profileSlug, err := freeSlug(ctx, profiles, in.Username)
		if err != nil {
			return err
		}
		displayName := in.FullName
		if displayName == "" {
			displayName = in.Username
		}
		p := db.Profile{UserID: user.ID, Slug: profileSlug, DisplayName: displayName, IsPublic: true}
		if err := profiles.Create(ctx, &p); err != nil {
			return err
		}
		return s.credits.WithTx(tx).EnsureAccount(ctx, user.ID)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, svcErr.Conflict("email or username is already registered")
	} else if err != nil {
		s.appCtx.Logger.Error("Register failed", "username", in.Username, "err", err)
		return nil, err
	}
	return s.session(user)
}

// freeSlug derives a profile slug from username, adding -2, -3 ... on collision.
func freeSlug(ctx context.Context, profiles *repository.ProfileRepository, username string) (string, error) {
	base := slug.Make(username)
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := profiles.SlugTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", svcErr.Conflict("could not find a free profile slug")
}

// Credentials log a user in by email or username.
type Credentials struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Service) Login(ctx context.Context, in Credentials) (*Session, error) {
	s.appCtx.Logger.Debug("Login called", "login", in.Login)

	user, err := s.users.GetByLogin(ctx, strings.ToLower(strings.TrimSpace(in.Login)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Unauthenticated("invalid credentials")
	} else if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, svcErr.Unauthenticated("invalid credentials")
	}
	if !user.IsActive {
		return nil, svcErr.Forbidden("account is disabled")
	}

	now := s.appCtx.Now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		s.appCtx.Logger.Error("TouchLogin failed", "user", user.ID, "err", err)
		return nil, err
	}
	user.LastLoginAt = &now
	return s.session(*user)
}

func (s *Service) session(u db.User) (*Session, error) {
	token, exp, err := s.appCtx.Tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Me is the signed-in user's dashboard header.
type Me struct {
	User    db.User     `json:"user"`
	Profile *db.Profile `json:"profile,omitempty"`
	Credits int64       `json:"credits"`
}

func (s *Service) Me(ctx context.Context, userID uint64) (*Me, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Me{User: *u}
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		out.Profile = p
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if out.Credits, err = s.credits.Balance(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}
