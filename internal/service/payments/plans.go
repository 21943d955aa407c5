package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/metrics"
	"github.com/oggyb/cardlink/internal/repository"
)

// PlanInput creates or replaces a subscription plan.
type PlanInput struct {
	Name         string                  `json:"name" binding:"required,max=64"`
	Description  string                  `json:"description" binding:"max=512"`
	PriceUSD     decimal.Decimal         `json:"priceUsd"`
	PriceVND     decimal.Decimal         `json:"priceVnd"`
	DurationDays int                     `json:"durationDays" binding:"required,gt=0,lte=3660"`
	Features     repository.PlanFeatures `json:"features"`
	IsActive     *bool                   `json:"isActive"`
}

func (in PlanInput) validatePrices() error {
	if in.PriceUSD.IsNegative() || in.PriceVND.IsNegative() {
		return svcErr.InvalidArgument("prices cannot be negative")
	}
	return nil
}

func (s *Service) Plans(ctx context.Context, activeOnly bool) ([]db.SubscriptionPlan, error) {
	return s.subs.ListPlans(ctx, activeOnly)
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*db.SubscriptionPlan, error) {
	if err := in.validatePrices(); err != nil {
		return nil, err
	}
	features, err := repository.EncodeFeatures(in.Features)
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	plan := &db.SubscriptionPlan{
		Name:         in.Name,
		Description:  in.Description,
		PriceUSD:     in.PriceUSD,
		PriceVND:     in.PriceVND,
		DurationDays: in.DurationDays,
		Features:     features,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.subs.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id uint64, in PlanInput) (*db.SubscriptionPlan, error) {
	if err := in.validatePrices(); err != nil {
		return nil, err
	}
	features, err := repository.EncodeFeatures(in.Features)
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	fields := map[string]any{
		"name":          in.Name,
		"description":   in.Description,
		"price_usd":     in.PriceUSD,
		"price_vnd":     in.PriceVND,
		"duration_days": in.DurationDays,
		"features":      features,
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if err := s.subs.UpdatePlan(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.subs.GetPlan(ctx, id)
}

// CurrentSubscription is the caller's active subscription with its plan.
type CurrentSubscription struct {
	Subscription *db.UserSubscription `json:"subscription"`
	Plan         *db.SubscriptionPlan `json:"plan"`
}

// MySubscription returns an empty value when nothing is active.
func (s *Service) MySubscription(ctx context.Context, userID uint64) (*CurrentSubscription, error) {
	sub, err := s.subs.Active(ctx, userID, s.appCtx.Now())
	if err != nil || sub == nil {
		return &CurrentSubscription{}, err
	}
	plan, err := s.subs.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &CurrentSubscription{Subscription: sub, Plan: plan}, nil
}

// ExpireSubscriptions marks lapsed subscriptions expired. Quota lookups
// already ignore them by date, so this only keeps the status column honest.
func (s *Service) ExpireSubscriptions(ctx context.Context) (int64, error) {
	n, err := s.subs.ExpireStale(ctx, s.appCtx.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SubscriptionsExpired(n)
		s.appCtx.Logger.Info("subscriptions expired", "count", n)
	}
	return n, nil
}
