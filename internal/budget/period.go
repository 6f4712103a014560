package budget

import (
	"time"

	"github.com/hearthledger/hearthledger/internal/shared"
)

// ResolvePeriod converts a household's billing-cycle start day and a
// reference date into the unique period [from, to) containing the
// reference. Start days past the end of a short month clamp to that
// month's last day, so startDay=31 in February anchors on the 28th/29th.
func ResolvePeriod(startDay int, reference time.Time) (Period, error) {
	if startDay < 1 || startDay > 31 {
		return Period{}, shared.ErrInvalidStartDay
	}
	ref := normalizeDate(reference)

	from := periodAnchor(ref.Year(), ref.Month(), startDay)
	if ref.Before(from) {
		from = periodAnchor(ref.Year(), ref.Month()-1, startDay)
	}
	return Period{
		From: from,
		To:   periodAnchor(from.Year(), from.Month()+1, startDay),
	}, nil
}

// Next returns the adjacent following period, re-resolved so the window
// stays aligned with varying month lengths.
func (p Period) Next(startDay int) (Period, error) {
	return ResolvePeriod(startDay, periodAnchor(p.From.Year(), p.From.Month()+1, startDay))
}

// Prev returns the adjacent preceding period.
func (p Period) Prev(startDay int) (Period, error) {
	return ResolvePeriod(startDay, periodAnchor(p.From.Year(), p.From.Month()-1, startDay))
}

// periodAnchor places startDay in the given month, clamping to the
// month's last day. time.Date normalizes out-of-range months, so callers
// may pass Month()+1 or Month()-1 directly.
func periodAnchor(year int, month time.Month, startDay int) time.Time {
	// Resolve year/month normalization first; callers pass raw Month()+1
	// and Month()-1 values that may overflow the calendar.
	base := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := startDay
	if last := daysInMonth(base.Year(), base.Month()); day > last {
		day = last
	}
	return time.Date(base.Year(), base.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
