package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
)

// PlanFeatures is the decoded features bag of a subscription plan.
// Missing quota fields decode as nil and are resolved by the quota layer.
type PlanFeatures struct {
	RequestQuotaPerMonth *int     `json:"request_quota_per_month,omitempty" validate:"omitempty,min=0"`
	OfferQuotaPerMonth   *int     `json:"offer_quota_per_month,omitempty" validate:"omitempty,min=0"`
	Highlights           []string `json:"highlights,omitempty" validate:"omitempty,dive,max=128"`
}

// DecodeFeatures parses and validates a features bag. Malformed rows are
// rejected instead of being cast through.
func DecodeFeatures(raw datatypes.JSON) (PlanFeatures, error) {
	var f PlanFeatures
	if len(raw) == 0 || string(raw) == "null" {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return PlanFeatures{}, fmt.Errorf("decode plan features: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return PlanFeatures{}, fmt.Errorf("invalid plan features: %w", err)
	}
	return f, nil
}

// EncodeFeatures validates and serializes a features bag.
func EncodeFeatures(f PlanFeatures) (datatypes.JSON, error) {
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid plan features: %w", err)
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// SubscriptionRepository covers plans and user subscriptions.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(database *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: database}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) ListPlans(ctx context.Context, activeOnly bool) ([]db.SubscriptionPlan, error) {
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []db.SubscriptionPlan
	err := q.Order("price_usd ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SubscriptionRepository) GetPlan(ctx context.Context, id uint64) (*db.SubscriptionPlan, error) {
	var p db.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SubscriptionRepository) CreatePlan(ctx context.Context, p *db.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *SubscriptionRepository) UpdatePlan(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&db.SubscriptionPlan{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Active returns the user's subscription that is active at now, preferring
// the one that runs longest. nil means none.
func (r *SubscriptionRepository) Active(ctx context.Context, userID uint64, now time.Time) (*db.UserSubscription, error) {
	var s db.UserSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at >= ?", userID, db.SubscriptionActive, now.UTC()).
		Order("expires_at DESC").
		First(&s).Error
	if ok, err := found(err); !ok {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *db.UserSubscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SubscriptionRepository) ListForUser(ctx context.Context, userID uint64) ([]db.UserSubscription, error) {
	var out []db.UserSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// ExpireStale flips lapsed active subscriptions to expired and returns how
// many rows changed.
func (r *SubscriptionRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.UserSubscription{}).
		Where("status = ? AND expires_at < ?", db.SubscriptionActive, now.UTC()).
		Update("status", db.SubscriptionExpired)
	return res.RowsAffected, res.Error
}
