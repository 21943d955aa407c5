package quota

import "time"

const (
	KindRequest = "request"
	KindOffer   = "offer"
)

// StartOfMonth returns the first instant of now's calendar month in loc.
func StartOfMonth(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// NextReset is the first instant of the month after now's, in loc.
func NextReset(now time.Time, loc *time.Location) time.Time {
	return StartOfMonth(now, loc).AddDate(0, 1, 0)
}

// Period is the usage-counter bucket name, "YYYY-MM" in loc.
func Period(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01")
}

// Allow reports whether one more unit fits: count < quota.
func Allow(count, quota int64) bool {
	return count < quota
}
