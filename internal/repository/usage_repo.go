package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/cardlink/internal/db"
)

// UsageRepository keeps the per-user per-month counters of quota-gated rows.
type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(database *gorm.DB) *UsageRepository {
	return &UsageRepository{db: database}
}

func (r *UsageRepository) WithTx(tx *gorm.DB) *UsageRepository {
	return &UsageRepository{db: tx}
}

// Used returns the counter for (user, kind, period) and whether it exists.
func (r *UsageRepository) Used(ctx context.Context, userID uint64, kind, period string) (int64, bool, error) {
	var c db.UsageCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND period = ?", userID, kind, period).
		First(&c).Error
	ok, err := found(err)
	return c.Used, ok, err
}

// Reserve takes one unit from the counter iff used < limit. seed is the
// initial value when the counter row does not exist yet.
func (r *UsageRepository) Reserve(ctx context.Context, userID uint64, kind, period string, seed, limit int64) (bool, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.UsageCounter{UserID: userID, Kind: kind, Period: period, Used: seed}).Error
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&db.UsageCounter{}).
		Where("user_id = ? AND kind = ? AND period = ? AND used < ?", userID, kind, period, limit).
		UpdateColumn("used", gorm.Expr("used + 1"))
	return res.RowsAffected == 1, res.Error
}
