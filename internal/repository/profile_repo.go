package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// ProfileRepository covers profiles, their categories and search history.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) GetBySlug(ctx context.Context, slug string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) SlugTaken(ctx context.Context, slug string, exceptID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Profile{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProfileRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&db.Profile{}).Where("id = ?", id).Updates(fields).Error
}

// IncrementViews bumps view_count by one.
func (r *ProfileRepository) IncrementViews(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&db.Profile{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AdjustFollowerCount moves follower_count on the profile of userID by delta,
// never below zero.
func (r *ProfileRepository) AdjustFollowerCount(ctx context.Context, userID uint64, delta int64) error {
	return r.adjust(ctx, "follower_count", userID, delta)
}

// AdjustFollowingCount is the mirror of AdjustFollowerCount.
func (r *ProfileRepository) AdjustFollowingCount(ctx context.Context, userID uint64, delta int64) error {
	return r.adjust(ctx, "following_count", userID, delta)
}

func (r *ProfileRepository) adjust(ctx context.Context, col string, userID uint64, delta int64) error {
	return r.db.WithContext(ctx).Model(&db.Profile{}).
		Where("user_id = ? AND "+col+" + ? >= 0", userID, delta).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

// ProfileFilter narrows the public directory.
type ProfileFilter struct {
	Query      string
	CategoryID *uint64
}

// SearchPublic lists public profiles matching the filter, newest first.
func (r *ProfileRepository) SearchPublic(ctx context.Context, f ProfileFilter, token *string, limit int) ([]db.Profile, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.Profile{}).Where("is_public = ?", true)
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(display_name) LIKE ? OR LOWER(slug) LIKE ? OR LOWER(bio) LIKE ?)", like, like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	q, err := afterCursor(q, token, "created_at", "id", limit)
	if err != nil {
		return nil, nil, err
	}
	var profiles []db.Profile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, nil, err
	}
	profiles, next := pagination.Trim(profiles, limit, func(p db.Profile) pagination.Cursor {
		return pagination.At(p.ID, p.CreatedAt)
	})
	return profiles, next, nil
}

func (r *ProfileRepository) RecordSearch(ctx context.Context, h *db.SearchHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *ProfileRepository) RecentSearches(ctx context.Context, userID uint64, limit int) ([]db.SearchHistory, error) {
	var out []db.SearchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *ProfileRepository) ListCategories(ctx context.Context) ([]db.Category, error) {
	var out []db.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *ProfileRepository) CreateCategory(ctx context.Context, c *db.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ProfileRepository) CategoryExists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
