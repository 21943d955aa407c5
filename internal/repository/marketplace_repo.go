package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// MarketplaceRepository stores service requests and the offers made on them.
type MarketplaceRepository struct {
	db *gorm.DB
}

func NewMarketplaceRepository(database *gorm.DB) *MarketplaceRepository {
	return &MarketplaceRepository{db: database}
}

func (r *MarketplaceRepository) WithTx(tx *gorm.DB) *MarketplaceRepository {
	return &MarketplaceRepository{db: tx}
}

func (r *MarketplaceRepository) CreateRequest(ctx context.Context, req *db.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *MarketplaceRepository) GetRequest(ctx context.Context, id uint64) (*db.ServiceRequest, error) {
	var req db.ServiceRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// RequestFilter narrows ListRequests; zero values mean "any".
type RequestFilter struct {
	Status     string
	CategoryID uint64
	OwnerID    uint64
}

func (r *MarketplaceRepository) ListRequests(ctx context.Context, f RequestFilter, token *string, limit int) ([]db.ServiceRequest, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.ServiceRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.OwnerID != 0 {
		q = q.Where("created_by_user_id = ?", f.OwnerID)
	}
	q, err := afterCursor(q, token, "created_at", "id", limit)
	if err != nil {
		return nil, nil, err
	}
	var out []db.ServiceRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, nil, err
	}
	out, next := pagination.Trim(out, limit, func(s db.ServiceRequest) pagination.Cursor {
		return pagination.At(s.ID, s.CreatedAt)
	})
	return out, next, nil
}

// CloseRequest moves an open request owned by ownerID to closed.
func (r *MarketplaceRepository) CloseRequest(ctx context.Context, id, ownerID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.ServiceRequest{}).
		Where("id = ? AND created_by_user_id = ? AND status = ?", id, ownerID, db.RequestOpen).
		Update("status", db.RequestClosed)
	return res.RowsAffected == 1, res.Error
}

// CountRequestsSince counts requests created by userID at or after since.
func (r *MarketplaceRepository) CountRequestsSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ServiceRequest{}).
		Where("created_by_user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	return count, err
}

func (r *MarketplaceRepository) CreateOffer(ctx context.Context, o *db.ServiceOffer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *MarketplaceRepository) GetOffer(ctx context.Context, id uint64) (*db.ServiceOffer, error) {
	var o db.ServiceOffer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MarketplaceRepository) OfferExists(ctx context.Context, requestID, profileID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ServiceOffer{}).
		Where("request_id = ? AND profile_id = ?", requestID, profileID).
		Count(&count).Error
	return count > 0, err
}

func (r *MarketplaceRepository) OffersForRequest(ctx context.Context, requestID uint64) ([]db.ServiceOffer, error) {
	var out []db.ServiceOffer
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *MarketplaceRepository) OffersByProfile(ctx context.Context, profileID uint64, token *string, limit int) ([]db.ServiceOffer, *string, error) {
	q := r.db.WithContext(ctx).Model(&db.ServiceOffer{}).Where("profile_id = ?", profileID)
	q, err := afterCursor(q, token, "created_at", "id", limit)
	if err != nil {
		return nil, nil, err
	}
	var out []db.ServiceOffer
	if err := q.Find(&out).Error; err != nil {
		return nil, nil, err
	}
	out, next := pagination.Trim(out, limit, func(o db.ServiceOffer) pagination.Cursor {
		return pagination.At(o.ID, o.CreatedAt)
	})
	return out, next, nil
}

// TransitionOffer moves an offer from one status to another and reports
// whether it was in the expected state.
func (r *MarketplaceRepository) TransitionOffer(ctx context.Context, id uint64, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.ServiceOffer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to})
	return res.RowsAffected == 1, res.Error
}

// CountOffersSince counts offers made from userID's profile at or after since.
func (r *MarketplaceRepository) CountOffersSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ServiceOffer{}).
		Joins("JOIN profiles ON profiles.id = service_offers.profile_id").
		Where("profiles.user_id = ? AND service_offers.created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	return count, err
}

// OfferCounts returns pending and total offer counts per request id.
type OfferCounts struct {
	RequestID uint64
	Total     int64
	Pending   int64
}

func (r *MarketplaceRepository) OfferCounts(ctx context.Context, requestIDs []uint64) (map[uint64]OfferCounts, error) {
	out := make(map[uint64]OfferCounts, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	var rows []OfferCounts
	err := r.db.WithContext(ctx).Model(&db.ServiceOffer{}).
		Select("request_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending", db.OfferPending).
		Where("request_id IN ?", requestIDs).
		Group("request_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RequestID] = row
	}
	return out, nil
}
