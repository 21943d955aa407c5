package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/cardlink/internal/db"
)

// CreditRepository is the card credit ledger. The only mutations are the
// conditional Deduct and the additive Grant; callers never read-then-write.
type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(database *gorm.DB) *CreditRepository {
	return &CreditRepository{db: database}
}

func (r *CreditRepository) WithTx(tx *gorm.DB) *CreditRepository {
	return &CreditRepository{db: tx}
}

// EnsureAccount creates an empty balance row if the user has none.
func (r *CreditRepository) EnsureAccount(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.CardCredit{UserID: userID}).Error
}

// Balance is the user's card credit balance. A missing row reads as zero.
func (r *CreditRepository) Balance(ctx context.Context, userID uint64) (int64, error) {
	var c db.CardCredit
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if ok, err := found(err); !ok {
		return 0, err
	}
	return c.Amount, nil
}

// Deduct takes one credit iff the balance
// is at least one and reports whether it did.
func (r *CreditRepository) Deduct(ctx context.Context, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.CardCredit{}).
		Where("user_id = ? AND amount >= 1", userID).
		UpdateColumn("amount", gorm.Expr("amount - 1"))
	return res.RowsAffected == 1, res.Error
}

// Grant adds n credits, creating the row when needed. It is not idempotent;
// payment fulfillment is its only caller and guards re-invocation.
func (r *CreditRepository) Grant(ctx context.Context, userID uint64, n int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"amount": gorm.Expr("amount + ?", n)}),
		}).
		Create(&db.CardCredit{UserID: userID, Amount: n}).Error
}
