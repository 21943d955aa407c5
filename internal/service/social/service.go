package social

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// Service owns the follow graph. Follower/following counters on profiles
// move in the same transaction as the edge itself.
type Service struct {
	appCtx   *app.AppContext
	follows  *repository.FollowRepository
	profiles *repository.ProfileRepository
	users    *repository.UserRepository
	contacts *repository.ContactRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		follows:  repository.NewFollowRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		contacts: repository.NewContactRepository(appCtx.DB),
	}
}

// FollowState is the relationship after a follow or unfollow.
type FollowState struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"followerCount"`
}

// Follow makes followerID follow targetID.
//
// Behavior:
//   - Self-follow is rejected.
//   - Following twice is a no-op; counters only move for a new edge.
//   - A new edge also logs a follow event on the target's profile.
func (s *Service) Follow(ctx context.Context, followerID, targetID uint64) (*FollowState, error) {
	s.appCtx.Logger.Debug("Follow called", "follower", followerID, "target", targetID)

	if followerID == targetID {
		return nil, svcErr.InvalidArgument("you cannot follow yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !target.IsActive) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, err
	}

	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		created, err := s.follows.WithTx(tx).Insert(ctx, followerID, targetID)
		if err != nil || !created {
			return err
		}
		profiles := s.profiles.WithTx(tx)
		if err := profiles.AdjustFollowingCount(ctx, followerID, 1); err != nil {
			return err
		}
		if err := profiles.AdjustFollowerCount(ctx, targetID, 1); err != nil {
			return err
		}

		p, err := profiles.GetByUserID(ctx, targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return repository.NewAnalyticsRepository(tx).Insert(ctx, &db.AnalyticsEvent{ProfileID: p.ID, EventType: db.EventFollow})
	})
	if err != nil {
		s.appCtx.Logger.Error("Follow failed", "follower", followerID, "target", targetID, "err", err)
		return nil, err
	}
	return s.state(ctx, true, targetID)
}

// Unfollow removes the edge if present; counters never drop below zero.
func (s *Service) Unfollow(ctx context.Context, followerID, targetID uint64) (*FollowState, error) {
	s.appCtx.Logger.Debug("Unfollow called", "follower", followerID, "target", targetID)

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		existed, err := s.follows.WithTx(tx).Delete(ctx, followerID, targetID)
		if err != nil || !existed {
			return err
		}
		profiles := s.profiles.WithTx(tx)
		if err := profiles.AdjustFollowingCount(ctx, followerID, -1); err != nil {
			return err
		}
		return profiles.AdjustFollowerCount(ctx, targetID, -1)
	})
	if err != nil {
		s.appCtx.Logger.Error("Unfollow failed", "follower", followerID, "target", targetID, "err", err)
		return nil, err
	}
	return s.state(ctx, false, targetID)
}

func (s *Service) state(ctx context.Context, following bool, targetID uint64) (*FollowState, error) {
	st := &FollowState{Following: following}
	p, err := s.profiles.GetByUserID(ctx, targetID)
	if err == nil {
		st.FollowerCount = p.FollowerCount
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return st, nil
}

func (s *Service) IsFollowing(ctx context.Context, followerID, targetID uint64) (bool, error) {
	return s.follows.Exists(ctx, followerID, targetID)
}

// EdgePage is one page of follow edges.
type EdgePage struct {
	Edges               []db.Follow `json:"edges"`
	NextPaginationToken *string     `json:"nextPaginationToken,omitempty"`
}

// Followers lists who follows userID, newest first.
func (s *Service) Followers(ctx context.Context, userID uint64, token *string, limit int) (*EdgePage, error) {
	edges, next, err := s.follows.Followers(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &EdgePage{Edges: edges, NextPaginationToken: next}, nil
}

// Following lists whom userID follows, newest first.
func (s *Service) Following(ctx context.Context, userID uint64, token *string, limit int) (*EdgePage, error) {
	edges, next, err := s.follows.Following(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &EdgePage{Edges: edges, NextPaginationToken: next}, nil
}
