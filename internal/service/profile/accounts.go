package profile

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
)

// AccountInput adds a social account to the caller's card.
type AccountInput struct {
	Platform         string `json:"platform" binding:"required,max=32"`
	PlatformURL      string `json:"platformUrl" binding:"required,url,max=512"`
	PlatformUsername string `json:"platformUsername" binding:"max=128"`
	IsVisible        *bool  `json:"isVisible"`
}

type AccountPatch struct {
	Platform         *string `json:"platform" binding:"omitempty,min=1,max=32"`
	PlatformURL      *string `json:"platformUrl" binding:"omitempty,url,max=512"`
	PlatformUsername *string `json:"platformUsername" binding:"omitempty,max=128"`
	IsVisible        *bool   `json:"isVisible"`
}

func (s *Service) Accounts(ctx context.Context, userID uint64) ([]db.SocialAccount, error) {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, p.ID, true)
}

// AddAccount appends an account after the existing ones. New accounts are
// visible unless stated otherwise.
func (s *Service) AddAccount(ctx context.Context, userID uint64, in AccountInput) (*db.SocialAccount, error) {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	a := &db.SocialAccount{
		ProfileID:        p.ID,
		Platform:         strings.ToLower(strings.TrimSpace(in.Platform)),
		PlatformURL:      strings.TrimSpace(in.PlatformURL),
		PlatformUsername: strings.TrimSpace(in.PlatformUsername),
		IsVisible:        in.IsVisible == nil || *in.IsVisible,
	}
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		return s.accounts.WithTx(tx).Append(ctx, a)
	})
	if err != nil {
		s.appCtx.Logger.Error("AddAccount failed", "user", userID, "err", err)
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateAccount(ctx context.Context, userID, accountID uint64, in AccountPatch) (*db.SocialAccount, error) {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Platform != nil {
		fields["platform"] = strings.ToLower(strings.TrimSpace(*in.Platform))
	}
	if in.PlatformURL != nil {
		fields["platform_url"] = strings.TrimSpace(*in.PlatformURL)
	}
	if in.PlatformUsername != nil {
		fields["platform_username"] = strings.TrimSpace(*in.PlatformUsername)
	}
	if in.IsVisible != nil {
		fields["is_visible"] = *in.IsVisible
	}
	if len(fields) > 0 {
		if err := s.accounts.Update(ctx, p.ID, accountID, fields); err != nil {
			return nil, err
		}
	}
	return s.accounts.Get(ctx, p.ID, accountID)
}

func (s *Service) DeleteAccount(ctx context.Context, userID, accountID uint64) error {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.Delete(ctx, p.ID, accountID)
}

// Reorder sets the display order to ids, which must list every account of
// the caller exactly once.
func (s *Service) Reorder(ctx context.Context, userID uint64, ids []uint64) ([]db.SocialAccount, error) {
	p, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		current, err := accounts.IDs(ctx, p.ID)
		if err != nil {
			return err
		}
		if !samePermutation(current, ids) {
			return svcErr.InvalidArgument("order must list each of your social accounts exactly once")
		}
		return accounts.Reorder(ctx, p.ID, ids)
	})
	if err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, p.ID, true)
}

func samePermutation(have, want []uint64) bool {
	if len(have) != len(want) {
		return false
	}
	seen := make(map[uint64]bool, len(have))
	for _, id := range have {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return true
}
