package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
)

// AnalyticsRepository is the append-only event log.
type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(database *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: database}
}

func (r *AnalyticsRepository) WithTx(tx *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: tx}
}

func (r *AnalyticsRepository) Insert(ctx context.Context, e *db.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// EventPoint is the slice of an event needed for aggregation.
type EventPoint struct {
	EventType string
	CreatedAt time.Time
}

// Since returns events created at or after since, for one profile or for
// all profiles when profileID is nil.
func (r *AnalyticsRepository) Since(ctx context.Context, profileID *uint64, since time.Time) ([]EventPoint, error) {
	q := r.db.WithContext(ctx).Model(&db.AnalyticsEvent{}).
		Select("event_type, created_at").
		Where("created_at >= ?", since.UTC())
	if profileID != nil {
		q = q.Where("profile_id = ?", *profileID)
	}
	var out []EventPoint
	err := q.Order("created_at ASC").Scan(&out).Error
	return out, err
}
