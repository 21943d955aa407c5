package quota

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/metrics"
	"github.com/oggyb/cardlink/internal/repository"
)

// Status is a user's standing against one monthly quota.
type Status struct {
	Kind     string    `json:"kind"`
	Used     int64     `json:"used"`
	Limit    int64     `json:"limit"`
	Allowed  bool      `json:"allowed"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Service resolves monthly limits from the caller's active subscription
// and enforces them when requests and offers are created.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

func (s *Service) location() *time.Location {
	return s.appCtx.Config.Quota.Location()
}

func validKind(kind string) error {
	if kind != KindRequest && kind != KindOffer {
		return svcErr.InvalidArgument(fmt.Sprintf("unknown quota kind %q", kind))
	}
	return nil
}

// Limit is the monthly allowance for kind. An active subscription's plan
// features win; otherwise, or when the plan leaves the field out, the
// configured free tier applies.
func (s *Service) Limit(ctx context.Context, userID uint64, kind string) (int64, error) {
	return s.limit(ctx, s.appCtx.DB, userID, kind)
}

func (s *Service) limit(ctx context.Context, conn *gorm.DB, userID uint64, kind string) (int64, error) {
	if err := validKind(kind); err != nil {
		return 0, err
	}
	free := int64(s.appCtx.Config.Quota.FreeRequestsMonth)
	if kind == KindOffer {
		free = int64(s.appCtx.Config.Quota.FreeOffersMonth)
	}

	subs := repository.NewSubscriptionRepository(conn)
	sub, err := subs.Active(ctx, userID, s.appCtx.Now())
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return free, nil
	}
	plan, err := subs.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return 0, fmt.Errorf("load plan %d: %w", sub.PlanID, err)
	}
	features, err := repository.DecodeFeatures(plan.Features)
	if err != nil {
		return 0, err
	}

	field := features.RequestQuotaPerMonth
	if kind == KindOffer {
		field = features.OfferQuotaPerMonth
	}
	if field == nil {
		return free, nil
	}
	return int64(*field), nil
}

// countThisMonth counts the rows of kind the user created since the start
// of the month.
func (s *Service) countThisMonth(ctx context.Context, conn *gorm.DB, userID uint64, kind string) (int64, error) {
	since := StartOfMonth(s.appCtx.Now(), s.location())
	market := repository.NewMarketplaceRepository(conn)
	if kind == KindOffer {
		return market.CountOffersSince(ctx, userID, since)
	}
	return market.CountRequestsSince(ctx, userID, since)
}

// Check reports usage, limit and whether one more creation would pass.
func (s *Service) Check(ctx context.Context, userID uint64, kind string) (*Status, error) {
	limit, err := s.Limit(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	now := s.appCtx.Now()
	used, ok, err := repository.NewUsageRepository(s.appCtx.DB).Used(ctx, userID, kind, Period(now, s.location()))
	if err != nil {
		return nil, err
	}
	if !ok {
		if used, err = s.countThisMonth(ctx, s.appCtx.DB, userID, kind); err != nil {
			return nil, err
		}
	}

	return &Status{
		Kind:     kind,
		Used:     used,
		Limit:    limit,
		Allowed:  Allow(used, limit),
		ResetsAt: NextReset(now, s.location()),
	}, nil
}

// Reserve consumes one unit of kind inside tx, the same transaction that
// inserts the counted row. It fails with ErrQuotaExceeded when the month's
// allowance is used up.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, userID uint64, kind string) error {
	limit, err := s.limit(ctx, tx, userID, kind)
	if err != nil {
		return err
	}
	seed, err := s.countThisMonth(ctx, tx, userID, kind)
	if err != nil {
		return err
	}

	ok, err := repository.NewUsageRepository(tx).Reserve(ctx, userID, kind, Period(s.appCtx.Now(), s.location()), seed, limit)
	if err != nil {
		return err
	}
	if !ok {
		metrics.QuotaDenied(kind)
		s.appCtx.Logger.Debug("quota exhausted", "user_id", userID, "kind", kind, "limit", limit)
		return svcErr.QuotaExceeded(fmt.Sprintf("monthly %s quota reached (%d), upgrade your plan", kind, limit))
	}
	return nil
}
