package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// PaymentMetadata is the decoded metadata bag of a payment transaction.
type PaymentMetadata struct {
	PlanID    uint64 `json:"planId,omitempty"`
	PackageID string `json:"packageId,omitempty" validate:"omitempty,max=64"`
	Credits   int64  `json:"credits,omitempty" validate:"min=0"`
	Currency  string `json:"currency,omitempty" validate:"omitempty,oneof=USD VND"`
}

func DecodeMetadata(raw datatypes.JSON) (PaymentMetadata, error) {
	var m PaymentMetadata
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return PaymentMetadata{}, fmt.Errorf("decode payment metadata: %w", err)
	}
	if err := validate.Struct(m); err != nil {
		return PaymentMetadata{}, fmt.Errorf("invalid payment metadata: %w", err)
	}
	return m, nil
}

func EncodeMetadata(m PaymentMetadata) (datatypes.JSON, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid payment metadata: %w", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// PaymentRepository stores payment transactions and the bank transfer info.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(database *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: database}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, t *db.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *PaymentRepository) Get(ctx context.Context, id uint64) (*db.PaymentTransaction, error) {
	var t db.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// PaymentFilter narrows List; zero values mean "any".
type PaymentFilter struct {
	Status string
	UserID uint64
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentFilter, token *string, limit int) ([]db.PaymentTransaction, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.PaymentTransaction{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	q, err := afterCursor(q, token, "created_at", "id", limit)
	if err != nil {
		return nil, nil, err
	}
	var out []db.PaymentTransaction
	if err := q.Find(&out).Error; err != nil {
		return nil, nil, err
	}
	out, next := pagination.Trim(out, limit, func(t db.PaymentTransaction) pagination.Cursor {
		return pagination.At(t.ID, t.CreatedAt)
	})
	return out, next, nil
}

// Complete moves a pending transaction to completed. It reports false when
// the row is missing or no longer pending, which is the at-most-once guard
// for fulfillment.
func (r *PaymentRepository) Complete(ctx context.Context, id, adminID uint64, at time.Time) (bool, error) {
	return r.settle(ctx, id, map[string]any{
		"status":       db.TxStatusCompleted,
		"processed_by": adminID,
		"processed_at": at,
	})
}

// Fail moves a pending transaction to failed with the admin's reason.
func (r *PaymentRepository) Fail(ctx context.Context, id, adminID uint64, reason string, at time.Time) (bool, error) {
	return r.settle(ctx, id, map[string]any{
		"status":       db.TxStatusFailed,
		"notes":        reason,
		"processed_by": adminID,
		"processed_at": at,
	})
}

func (r *PaymentRepository) settle(ctx context.Context, id uint64, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, db.TxStatusPending).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

// BankInfo returns the transfer instructions, or an empty value if unset.
func (r *PaymentRepository) BankInfo(ctx context.Context) (*db.BankTransferInfo, error) {
	var info db.BankTransferInfo
	err := r.db.WithContext(ctx).Order("id ASC").First(&info).Error
	if ok, err := found(err); !ok {
		return &db.BankTransferInfo{}, err
	}
	return &info, nil
}

// SaveBankInfo overwrites the single bank info row.
func (r *PaymentRepository) SaveBankInfo(ctx context.Context, info *db.BankTransferInfo) error {
	current, err := r.BankInfo(ctx)
	if err != nil {
		return err
	}
	info.ID = current.ID
	return r.db.WithContext(ctx).Save(info).Error
}
