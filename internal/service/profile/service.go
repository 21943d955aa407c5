package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

const recentSearchLimit = 20

// Service serves the public directory and lets owners edit their card.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	accounts *repository.SocialAccountRepository
	users    *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		accounts: repository.NewSocialAccountRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
	}
}

// View is a profile as seen by one caller.
type View struct {
	db.Profile
	SocialAccounts []db.SocialAccount `json:"socialAccounts"`
	IsOwner        bool               `json:"isOwner"`
}

// Get loads the profile at slug for viewer (nil when anonymous).
//
// Behavior:
//   - Private profiles and profiles of deactivated users are visible only
//     to their owner and to admins; everyone else gets not found.
//   - Hidden social accounts are listed only for the owner.
func (s *Service) Get(ctx context.Context, profileSlug string, viewer *auth.Principal) (*View, error) {
	s.appCtx.Logger.Debug("Get profile called", "slug", profileSlug)

	p, err := s.profiles.GetBySlug(ctx, profileSlug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("profile not found")
	} else if err != nil {
		return nil, err
	}

	owner := viewer != nil && viewer.UserID == p.UserID
	privileged := owner || (viewer != nil && viewer.IsAdmin)
	if !privileged {
		if !p.IsPublic {
			return nil, svcErr.NotFound("profile not found")
		}
		u, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !u.IsActive {
			return nil, svcErr.NotFound("profile not found")
		}
	}

	accounts, err := s.accounts.List(ctx, p.ID, owner)
	if err != nil {
		return nil, err
	}
	return &View{Profile: *p, SocialAccounts: accounts, IsOwner: owner}, nil
}

// Mine is the caller's own profile with every social account.
func (s *Service) Mine(ctx context.Context, userID uint64) (*View, error) {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx, p.ID, true)
	if err != nil {
		return nil, err
	}
	return &View{Profile: *p, SocialAccounts: accounts, IsOwner: true}, nil
}

func (s *Service) ownProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("you do not have a profile yet")
	}
	return p, err
}

// SearchPage is one page of the public directory.
type SearchPage struct {
	Profiles            []db.Profile `json:"profiles"`
	NextPaginationToken *string      `json:"nextPaginationToken,omitempty"`
}

// Search lists public profiles. Searches made by a signed-in caller with a
// query or a category are appended to their history.
func (s *Service) Search(ctx context.Context, viewerID *uint64, query string, categoryID *uint64, token *string, limit int) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if len(query) > 256 {
		return nil, svcErr.InvalidArgument("query is too long")
	}

	profiles, next, err := s.profiles.SearchPublic(ctx,
		repository.ProfileFilter{Query: query, CategoryID: categoryID}, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	if viewerID != nil && token == nil && (query != "" || categoryID != nil) {
		h := &db.SearchHistory{UserID: *viewerID, Query: query, CategoryID: categoryID}
		if err := s.profiles.RecordSearch(ctx, h); err != nil {
			s.appCtx.Logger.Error("record search failed", "user", *viewerID, "err", err)
		}
	}
	return &SearchPage{Profiles: profiles, NextPaginationToken: next}, nil
}

func (s *Service) RecentSearches(ctx context.Context, userID uint64) ([]db.SearchHistory, error) {
	return s.profiles.RecentSearches(ctx, userID, recentSearchLimit)
}

// Update is a partial edit of the caller's profile. Nil fields are left alone.
type Update struct {
	DisplayName   *string         `json:"displayName" binding:"omitempty,max=128"`
	Bio           *string         `json:"bio" binding:"omitempty,max=1024"`
	AvatarURL     *string         `json:"avatarUrl" binding:"omitempty,max=512"`
	IsPublic      *bool           `json:"isPublic"`
	ThemeConfig   json.RawMessage `json:"themeConfig"`
	CategoryID    *uint64         `json:"categoryId"`
	ClearCategory bool            `json:"clearCategory"`
	Slug          *string         `json:"slug" binding:"omitempty,max=64"`
}

// UpdateMine applies in to the caller's profile.
//
// Behavior:
//   - Slugs are normalized and must stay unique.
//   - Theme config must be a JSON object.
//   - The category must exist.
func (s *Service) UpdateMine(ctx context.Context, userID uint64, in Update) (*View, error) {
	s.appCtx.Logger.Debug("UpdateMine called", "user", userID)

	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if len(in.ThemeConfig) > 0 {
		var obj map[string]any
		if err := json.Unmarshal(in.ThemeConfig, &obj); err != nil || obj == nil {
			return nil, svcErr.InvalidArgument("themeConfig must be a JSON object")
		}
		fields["theme_config"] = datatypes.JSON(in.ThemeConfig)
	}
	switch {
	case in.ClearCategory:
		fields["category_id"] = nil
	case in.CategoryID != nil:
		ok, err := s.profiles.CategoryExists(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, svcErr.InvalidArgument("category not found")
		}
		fields["category_id"] = *in.CategoryID
	}
	if in.Slug != nil {
		next := slug.Make(*in.Slug)
		if next == "" {
			return nil, svcErr.InvalidArgument("slug must contain letters or digits")
		}
		taken, err := s.profiles.SlugTaken(ctx, next, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, svcErr.Conflict("that slug is already taken")
		}
		fields["slug"] = next
	}

	if len(fields) > 0 {
		if err := s.profiles.Update(ctx, p.ID, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, svcErr.Conflict("that slug is already taken")
			}
			s.appCtx.Logger.Error("UpdateMine failed", "user", userID, "err", err)
			return nil, err
		}
	}
	return s.Mine(ctx, userID)
}

func (s *Service) Categories(ctx context.Context) ([]db.Category, error) {
	return s.profiles.ListCategories(ctx)
}

// CreateCategory adds a directory category; its slug is derived from name.
func (s *Service) CreateCategory(ctx context.Context, name string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	c := &db.Category{Name: name, Slug: slug.Make(name)}
	if c.Slug == "" || len(name) > 64 {
		return nil, svcErr.InvalidArgument("category name must be 1-64 characters with letters or digits")
	}
	if err := s.profiles.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("category already exists")
		}
		return nil, err
	}
	return c, nil
}

// UserPatch is what admins may change on an account.
type UserPatch struct {
	IsActive   *bool   `json:"isActive"`
	IsVerified *bool   `json:"isVerified"`
	Role       *string `json:"role" binding:"omitempty,oneof=user admin"`
}

// UpdateUser applies an admin edit. Admins cannot demote or deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, adminID, userID uint64, in UserPatch) (*db.User, error) {
	s.appCtx.Logger.Debug("UpdateUser called", "admin", adminID, "user", userID)

	if adminID == userID && ((in.IsActive != nil && !*in.IsActive) || (in.Role != nil && *in.Role != db.RoleAdmin)) {
		return nil, svcErr.InvalidArgument("you cannot deactivate or demote yourself")
	}
	if _, err := s.users.GetByID(ctx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.IsVerified != nil {
		fields["is_verified"] = *in.IsVerified
	}
	if in.Role != nil {
		fields["role"] = *in.Role
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			s.appCtx.Logger.Error("UpdateUser failed", "user", userID, "err", err)
			return nil, err
		}
	}
	return s.users.GetByID(ctx, userID)
}
