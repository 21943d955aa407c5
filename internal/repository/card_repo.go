package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// CardRepository stores card sends.
type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(database *gorm.DB) *CardRepository {
	return &CardRepository{db: database}
}

func (r *CardRepository) WithTx(tx *gorm.DB) *CardRepository {
	return &CardRepository{db: tx}
}

func (r *CardRepository) Create(ctx context.Context, c *db.CardSend) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CardRepository) Get(ctx context.Context, id uint64) (*db.CardSend, error) {
	var c db.CardSend
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkViewed flips viewed false→true for the receiver's card and stamps
// viewed_at. It reports whether this call made the transition.
func (r *CardRepository) MarkViewed(ctx context.Context, id, receiverID uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.CardSend{}).
		Where("id = ? AND receiver_id = ? AND viewed = ?", id, receiverID, false).
		UpdateColumns(map[string]any{"viewed": true, "viewed_at": at})
	return res.RowsAffected == 1, res.Error
}

// Received lists cards sent to receiverID, newest first.
func (r *CardRepository) Received(ctx context.Context, receiverID uint64, token *string, limit int) ([]db.CardSend, *string, error) {
	return r.list(ctx, "receiver_id", receiverID, token, limit)
}

// Sent lists cards sent by senderID, newest first.
func (r *CardRepository) Sent(ctx context.Context, senderID uint64, token *string, limit int) ([]db.CardSend, *string, error) {
	return r.list(ctx, "sender_id", senderID, token, limit)
}

func (r *CardRepository) list(ctx context.Context, col string, userID uint64, token *string, limit int) ([]db.CardSend, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.CardSend{}).Where(col+" = ?", userID)
	q, err := afterCursor(q, token, "created_at", "id", limit)
	if err != nil {
		return nil, nil, err
	}
	var cards []db.CardSend
	if err := q.Find(&cards).Error; err != nil {
		return nil, nil, err
	}
	cards, next := pagination.Trim(cards, limit, func(c db.CardSend) pagination.Cursor {
		return pagination.At(c.ID, c.CreatedAt)
	})
	return cards, next, nil
}

func (r *CardRepository) CountUnviewed(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.CardSend{}).
		Where("receiver_id = ? AND viewed = ?", receiverID, false).
		Count(&count).Error
	return count, err
}
