package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
)

// SocialAccountRepository manages the ordered link list of a profile.
type SocialAccountRepository struct {
	db *gorm.DB
}

func NewSocialAccountRepository(database *gorm.DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: database}
}

func (r *SocialAccountRepository) WithTx(tx *gorm.DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: tx}
}

// List returns the accounts of a profile in display order. Hidden accounts
// are only included for the owner.
func (r *SocialAccountRepository) List(ctx context.Context, profileID uint64, includeHidden bool) ([]db.SocialAccount, error) {
	q := r.db.WithContext(ctx).Where("profile_id = ?", profileID)
	if !includeHidden {
		q = q.Where("is_visible = ?", true)
	}
	var out []db.SocialAccount
	err := q.Order("display_order ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SocialAccountRepository) Get(ctx context.Context, profileID, id uint64) (*db.SocialAccount, error) {
	var a db.SocialAccount
	err := r.db.WithContext(ctx).Where("id = ? AND profile_id = ?", id, profileID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Append inserts the account after the current last one.
func (r *SocialAccountRepository) Append(ctx context.Context, a *db.SocialAccount) error {
	var maxOrder *int
	if err := r.db.WithContext(ctx).Model(&db.SocialAccount{}).
		Where("profile_id = ?", a.ProfileID).
		Select("MAX(display_order)").
		Scan(&maxOrder).Error; err != nil {
		return err
	}
	a.DisplayOrder = 0
	if maxOrder != nil {
		a.DisplayOrder = *maxOrder + 1
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *SocialAccountRepository) Update(ctx context.Context, profileID, id uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&db.SocialAccount{}).
		Where("id = ? AND profile_id = ?", id, profileID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SocialAccountRepository) Delete(ctx context.Context, profileID, id uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", id, profileID).
		Delete(&db.SocialAccount{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Reorder rewrites display_order so that ids[i] gets position i. The caller
// must run it inside a transaction and pass every account id of the profile.
func (r *SocialAccountRepository) Reorder(ctx context.Context, profileID uint64, ids []uint64) error {
	for i, id := range ids {
		err := r.db.WithContext(ctx).Model(&db.SocialAccount{}).
			Where("id = ? AND profile_id = ?", id, profileID).
			UpdateColumn("display_order", i).Error
		if err != nil {
			return fmt.Errorf("reorder social account %d: %w", id, err)
		}
	}
	return nil
}

func (r *SocialAccountRepository) IDs(ctx context.Context, profileID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&db.SocialAccount{}).
		Where("profile_id = ?", profileID).
		Pluck("id", &ids).Error
	return ids, err
}

// IncrementClick bumps click_count by one. It reports whether the
// account exists on the given profile.
func (r *SocialAccountRepository) IncrementClick(ctx context.Context, profileID, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.SocialAccount{}).
		Where("id = ? AND profile_id = ?", id, profileID).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	return res.RowsAffected == 1, res.Error
}
