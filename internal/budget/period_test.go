package budget

import (
	"errors"
	"testing"
	"time"

	"github.com/hearthledger/hearthledger/internal/shared"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolvePeriodFirstOfMonth(t *testing.T) {
	p, err := ResolvePeriod(1, date(2025, time.March, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.From.Equal(date(2025, time.March, 1)) || !p.To.Equal(date(2025, time.April, 1)) {
		t.Fatalf("unexpected period %v..%v", p.From, p.To)
	}
}

func TestResolvePeriodReferenceBeforeAnchor(t *testing.T) {
	// Reference on the 10th with cycles starting the 15th belongs to the
	// period that began the previous month.
	p, err := ResolvePeriod(15, date(2025, time.March, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.From.Equal(date(2025, time.February, 15)) || !p.To.Equal(date(2025, time.March, 15)) {
		t.Fatalf("unexpected period %v..%v", p.From, p.To)
	}
}

func TestResolvePeriodClampsShortMonths(t *testing.T) {
	// Start day 31 in mid-February anchors on the clamped January 31 and
	// ends on February's last day.
	p, err := ResolvePeriod(31, date(2025, time.February, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.From.Equal(date(2025, time.January, 31)) {
		t.Fatalf("expected from Jan 31, got %v", p.From)
	}
	if !p.To.Equal(date(2025, time.February, 28)) {
		t.Fatalf("expected to Feb 28, got %v", p.To)
	}

	// Leap year clamps to the 29th.
	p, err = ResolvePeriod(31, date(2024, time.February, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.To.Equal(date(2024, time.February, 29)) {
		t.Fatalf("expected to Feb 29, got %v", p.To)
	}
}

func TestResolvePeriodHalfOpenBoundaries(t *testing.T) {
	p, err := ResolvePeriod(5, date(2025, time.June, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Contains(date(2025, time.June, 5)) {
		t.Fatalf("period must contain its start date")
	}
	if p.Contains(date(2025, time.July, 5)) {
		t.Fatalf("period must exclude its end date")
	}
}

func TestResolvePeriodInvalidStartDay(t *testing.T) {
	for _, day := range []int{0, -1, 32} {
		if _, err := ResolvePeriod(day, date(2025, time.March, 1)); !errors.Is(err, shared.ErrInvalidStartDay) {
			t.Fatalf("start day %d: expected ErrInvalidStartDay, got %v", day, err)
		}
	}
}

func TestPeriodsStayContiguous(t *testing.T) {
	// Walking Next across short months with a clamped start day must
	// produce adjacent windows with no gap and no overlap.
	p, err := ResolvePeriod(31, date(2025, time.January, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 14; i++ {
		next, err := p.Next(31)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !next.From.Equal(p.To) {
			t.Fatalf("gap between %v and %v", p.To, next.From)
		}
		p = next
	}
}

func TestPeriodPrevInvertsNext(t *testing.T) {
	p, err := ResolvePeriod(15, date(2025, time.May, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, err := p.Next(15)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	back, err := next.Prev(15)
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	if !back.From.Equal(p.From) || !back.To.Equal(p.To) {
		t.Fatalf("prev(next(p)) = %v..%v, want %v..%v", back.From, back.To, p.From, p.To)
	}
}
