package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
)

// ContactRepository manages a user's saved profiles and their categories.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(database *gorm.DB) *ContactRepository {
	return &ContactRepository{db: database}
}

func (r *ContactRepository) WithTx(tx *gorm.DB) *ContactRepository {
	return &ContactRepository{db: tx}
}

func (r *ContactRepository) CreateCategory(ctx context.Context, c *db.ContactCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContactRepository) ListCategories(ctx context.Context, userID uint64) ([]db.ContactCategory, error) {
	var out []db.ContactCategory
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&out).Error
	return out, err
}

// CategoryOwnedBy reports whether category id belongs to userID.
func (r *ContactRepository) CategoryOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ContactCategory{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	return count > 0, err
}

// DeleteCategory removes the category and detaches every contact that
// pointed at it. Run inside a transaction.
func (r *ContactRepository) DeleteCategory(ctx context.Context, id, userID uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&db.ContactCategory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Model(&db.Contact{}).
		Where("user_id = ? AND category_id = ?", userID, id).
		Update("category_id", nil).Error
}

func (r *ContactRepository) Create(ctx context.Context, c *db.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContactRepository) Exists(ctx context.Context, userID, profileID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Contact{}).
		Where("user_id = ? AND contact_profile_id = ?", userID, profileID).
		Count(&count).Error
	return count > 0, err
}

func (r *ContactRepository) Get(ctx context.Context, id, userID uint64) (*db.Contact, error) {
	var c db.Contact
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) Update(ctx context.Context, id, userID uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&db.Contact{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id, userID uint64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&db.Contact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ContactFilter narrows List. Uncategorized selects contacts with no category.
type ContactFilter struct {
	CategoryID    *uint64
	Uncategorized bool
}

func (r *ContactRepository) List(ctx context.Context, userID uint64, f ContactFilter) ([]db.Contact, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch {
	case f.Uncategorized:
		q = q.Where("category_id IS NULL")
	case f.CategoryID != nil:
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	var out []db.Contact
	err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}
