package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin/binding"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
)

const (
	DefaultDays     = 30
	MaxDays         = 365
	maxMetadataSize = 2048
	dayLayout       = "2006-01-02"
)

// Service records profile events and turns them into dashboard reports.
type Service struct {
	appCtx   *app.AppContext
	events   *repository.AnalyticsRepository
	profiles *repository.ProfileRepository
	accounts *repository.SocialAccountRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		events:   repository.NewAnalyticsRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		accounts: repository.NewSocialAccountRepository(appCtx.DB),
	}
}

// EventInput is the public tracking payload.
type EventInput struct {
	ProfileID       uint64          `json:"profile_id" binding:"required"`
	EventType       string          `json:"event_type" binding:"required,oneof=view click follow share"`
	SocialAccountID *uint64         `json:"social_account_id"`
	Metadata        json.RawMessage `json:"metadata"`
}

// Track stores one event from client.
//
// Behavior:
//   - A click must name a social account of the same profile and bumps
//     that account's click count.
//   - A view bumps the profile's view count once per client per dedupe
//     window; repeats are still logged.
func (s *Service) Track(ctx context.Context, in EventInput, client string) (*db.AnalyticsEvent, error) {
	s.appCtx.Logger.Debug("Track called", "profile", in.ProfileID, "type", in.EventType)

	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	if in.EventType == db.EventClick && in.SocialAccountID == nil {
		return nil, svcErr.InvalidArgument("click events need social_account_id")
	}
	event := &db.AnalyticsEvent{ProfileID: in.ProfileID, EventType: in.EventType, SocialAccountID: in.SocialAccountID}
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		var obj map[string]any
		if len(in.Metadata) > maxMetadataSize || json.Unmarshal(in.Metadata, &obj) != nil || obj == nil {
			return nil, svcErr.InvalidArgument("metadata must be a JSON object under 2KB")
		}
		event.Metadata = datatypes.JSON(in.Metadata)
	}

	if _, err := s.profiles.GetByID(ctx, in.ProfileID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("profile not found")
	} else if err != nil {
		return nil, err
	}

	var seenKey string
	countView := in.EventType == db.EventView
	if countView {
		countView, seenKey = s.firstView(ctx, in.ProfileID, client)
	}

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if in.EventType == db.EventClick {
			ok, err := s.accounts.WithTx(tx).IncrementClick(ctx, in.ProfileID, *in.SocialAccountID)
			if err != nil {
				return err
			}
			if !ok {
				return svcErr.InvalidArgument("social account does not belong to this profile")
			}
		}
		if countView {
			if err := s.profiles.WithTx(tx).IncrementViews(ctx, in.ProfileID); err != nil {
				return err
			}
		}
		return s.events.WithTx(tx).Insert(ctx, event)
	})
	if err != nil {
		if seenKey != "" {
			// the view was never stored, so let the client's next view count
			if delErr := s.appCtx.RedisCache.Del(ctx, seenKey); delErr != nil {
				s.appCtx.Logger.Error("view dedupe release failed", "key", seenKey, "err", delErr)
			}
		}
		if !errors.Is(err, svcErr.ErrInvalidArgument) {
			s.appCtx.Logger.Error("Track failed", "profile", in.ProfileID, "type", in.EventType, "err", err)
		}
		return nil, err
	}
	return event, nil
}

// firstView reports whether client has not viewed the profile within the
// dedupe window, and the key it claimed when it has not. Redis trouble
// counts the view. A non-positive window disables dedupe.
func (s *Service) firstView(ctx context.Context, profileID uint64, client string) (bool, string) {
	rc := s.appCtx.RedisCache
	ttl := s.appCtx.Config.Analytics.ViewDedupTTL
	if rc == nil || client == "" || ttl <= 0 {
		return true, ""
	}
	key := rc.KeyForViewSeen(profileID, client)
	first, err := rc.FirstSeen(ctx, key, ttl)
	if err != nil {
		s.appCtx.Logger.Error("view dedupe failed", "profile", profileID, "err", err)
		return true, ""
	}
	if !first {
		return false, ""
	}
	return true, key
}

// Counts are event tallies over some span.
type Counts struct {
	Views   int64 `json:"views"`
	Clicks  int64 `json:"clicks"`
	Follows int64 `json:"follows"`
}

func (c *Counts) add(eventType string) {
	switch eventType {
	case db.EventView:
		c.Views++
	case db.EventClick:
		c.Clicks++
	case db.EventFollow:
		c.Follows++
	}
}

// DayPoint is one UTC day of the chart.
type DayPoint struct {
	Date string `json:"date"`
	Counts
}

type Summary struct {
	CurrentPeriod  Counts `json:"currentPeriod"`
	PreviousPeriod Counts `json:"previousPeriod"`
	TotalViews     int64  `json:"totalViews"`
	TotalClicks    int64  `json:"totalClicks"`
}

// Report is the dashboard payload.
type Report struct {
	ChartData []DayPoint `json:"chartData"`
	Summary   Summary    `json:"summary"`
}

// ClampDays applies the default window and bounds it to [1, MaxDays].
func ClampDays(days int) int {
	switch {
	case days == 0:
		return DefaultDays
	case days < 1:
		return 1
	case days > MaxDays:
		return MaxDays
	}
	return days
}

// Report builds the dashboard for profileID, or for every profile when
// profileID is nil. Only the owner or an admin may read a profile's
// numbers; the global view is admin-only.
func (s *Service) Report(ctx context.Context, caller auth.Principal, profileID *uint64, days int) (*Report, error) {
	s.appCtx.Logger.Debug("Report called", "caller", caller.UserID, "days", days)

	days = ClampDays(days)
	if profileID == nil {
		if !caller.IsAdmin {
			return nil, svcErr.Forbidden("only admins can read global analytics")
		}
	} else {
		p, err := s.profiles.GetByID(ctx, *profileID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !caller.IsAdmin {
				return nil, svcErr.Forbidden("you cannot read this profile's analytics")
			}
			return nil, svcErr.NotFound("profile not found")
		} else if err != nil {
			return nil, err
		}
		if p.UserID != caller.UserID && !caller.IsAdmin {
			return nil, svcErr.Forbidden("you cannot read this profile's analytics")
		}
	}

	rc := s.appCtx.RedisCache
	now := s.appCtx.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	key := rc.KeyForAnalyticsSummary(profileID, start, days)
	var cached Report
	if hit, err := rc.GetJSON(ctx, key, &cached); err != nil {
		s.appCtx.Logger.Error("analytics cache read failed", "key", key, "err", err)
	} else if hit {
		return &cached, nil
	}

	points, err := s.events.Since(ctx, profileID, start)
	if err != nil {
		s.appCtx.Logger.Error("Report failed", "caller", caller.UserID, "err", err)
		return nil, err
	}
	report := Aggregate(points, start, days)

	if err := rc.SetJSON(ctx, key, report, s.appCtx.Config.Analytics.SummaryTTL); err != nil {
		s.appCtx.Logger.Error("analytics cache write failed", "key", key, "err", err)
	}
	return report, nil
}

// Aggregate buckets points into days UTC days starting at start. The
// summary splits the window at its midpoint: events before it form the
// previous period, the rest the current one.
func Aggregate(points []repository.EventPoint, start time.Time, days int) *Report {
	chart := make([]DayPoint, days)
	index := make(map[string]int, days)
	for i := range chart {
		d := start.AddDate(0, 0, i).Format(dayLayout)
		chart[i].Date = d
		index[d] = i
	}
	mid := start.Add(time.Duration(days) * 24 * time.Hour / 2)

	var sum Summary
	for _, p := range points {
		at := p.CreatedAt.UTC()
		i, ok := index[at.Format(dayLayout)]
		if !ok {
			continue
		}
		chart[i].add(p.EventType)
		if at.Before(mid) {
			sum.PreviousPeriod.add(p.EventType)
		} else {
			sum.CurrentPeriod.add(p.EventType)
		}
	}
	sum.TotalViews = sum.CurrentPeriod.Views + sum.PreviousPeriod.Views
	sum.TotalClicks = sum.CurrentPeriod.Clicks + sum.PreviousPeriod.Clicks
	return &Report{ChartData: chart, Summary: sum}
}
