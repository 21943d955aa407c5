package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// FollowRepository provides data access methods for the Follow model.
// It encapsulates all queries on the user→user follow graph.
type FollowRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new repository bound to the given DB connection.
func NewFollowRepository(database *gorm.DB) *FollowRepository {
	return &FollowRepository{db: database}
}

func (r *FollowRepository) WithTx(tx *gorm.DB) *FollowRepository {
	return &FollowRepository{db: tx}
}

// Insert creates the follower → following edge.
//
// Behavior:
//   - If the pair already exists nothing changes and created is false.
//   - Composite PK guarantees a single row per pair.
//
// Example:
//
//	repo.Insert(ctx, 1, 2) // user 1 follows user 2
func (r *FollowRepository) Insert(ctx context.Context, followerID, followingID uint64) (bool, error) {
	f := db.Follow{FollowerID: followerID, FollowingID: followingID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&f)
	return res.RowsAffected == 1, res.Error
}

// Delete removes the edge and reports whether it existed.
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&db.Follow{})
	return res.RowsAffected == 1, res.Error
}

// Exists checks whether follower follows following.
func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// Followers returns the edges pointing at userID.
//
// Behavior:
//   - Ordered by created_at DESC, follower_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *FollowRepository) Followers(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]db.Follow, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.Follow{}).Where("following_id = ?", userID)
	q, err := afterCursor(q, paginationToken, "created_at", "follower_id", limit)
	if err != nil {
		return nil, nil, err
	}
	var edges []db.Follow
	if err := q.Find(&edges).Error; err != nil {
		return nil, nil, err
	}
	edges, next := pagination.Trim(edges, limit, func(f db.Follow) pagination.Cursor {
		return pagination.At(f.FollowerID, f.CreatedAt)
	})
	return edges, next, nil
}

// Following returns the edges leaving userID, same ordering as Followers.
func (r *FollowRepository) Following(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]db.Follow, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.Follow{}).Where("follower_id = ?", userID)
	q, err := afterCursor(q, paginationToken, "created_at", "following_id", limit)
	if err != nil {
		return nil, nil, err
	}
	var edges []db.Follow
	if err := q.Find(&edges).Error; err != nil {
		return nil, nil, err
	}
	edges, next := pagination.Trim(edges, limit, func(f db.Follow) pagination.Cursor {
		return pagination.At(f.FollowingID, f.CreatedAt)
	})
	return edges, next, nil
}
