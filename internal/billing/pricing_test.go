package billing_test

import (
	"testing"
	"time"

	"github.com/baketsu/backend/internal/billing"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestMonthWindow(t *testing.T) {
	t.Run("actual day counts per month", func(t *testing.T) {
		cases := []struct {
			year  int
			month time.Month
			days  int
		}{
			{2024, time.January, 31},
			{2024, time.February, 29}, // leap year
			{2023, time.February, 28},
			{2024, time.April, 30},
			{2024, time.December, 31},
		}
		for _, tc := range cases {
			w := billing.MonthWindow(tc.year, tc.month)
			if got := w.Days(); got != tc.days {
				t.Errorf("MonthWindow(%d, %v).Days() = %d, want %d", tc.year, tc.month, got, tc.days)
			}
		}
	})

	t.Run("window is half-open", func(t *testing.T) {
		w := billing.MonthWindow(2024, time.May)
		if !w.Contains(date(2024, time.May, 1)) {
			t.Error("window should contain its start")
		}
		if !w.Contains(date(2024, time.May, 31)) {
			t.Error("window should contain its last day")
		}
		if w.Contains(date(2024, time.June, 1)) {
			t.Error("window should not contain its end")
		}
	})

	t.Run("previous month crosses year boundary", func(t *testing.T) {
		w := billing.PreviousMonth(date(2024, time.January, 15))
		if w.Year() != 2023 || w.Month() != time.December {
			t.Errorf("PreviousMonth(Jan 2024) = %d-%v, want 2023-December", w.Year(), w.Month())
		}
	})
}

func TestChargeableDays(t *testing.T) {
	may := billing.MonthWindow(2024, time.May) // 31 days

	t.Run("holding spanning the whole window charges every day", func(t *testing.T) {
		uploaded := date(2024, time.March, 3)
		got := billing.ChargeableDays(uploaded, nil, may, may.End)
		if got != may.Days() {
			t.Errorf("ChargeableDays() = %d, want %d", got, may.Days())
		}
	})

	t.Run("deleted before window start is excluded", func(t *testing.T) {
		uploaded := date(2024, time.March, 3)
		deleted := date(2024, time.April, 20)
		if got := billing.ChargeableDays(uploaded, &deleted, may, may.End); got != 0 {
			t.Errorf("ChargeableDays() = %d, want 0", got)
		}
	})

	t.Run("uploaded on or after window end is excluded", func(t *testing.T) {
		uploaded := date(2024, time.June, 1)
		if got := billing.ChargeableDays(uploaded, nil, may, may.End); got != 0 {
			t.Errorf("ChargeableDays() = %d, want 0", got)
		}
	})

	t.Run("uploaded day 10 deleted day 20 charges exactly 10 days", func(t *testing.T) {
		uploaded := date(2024, time.May, 10)
		deleted := date(2024, time.May, 20)
		if got := billing.ChargeableDays(uploaded, &deleted, may, may.End); got != 10 {
			t.Errorf("ChargeableDays() = %d, want 10", got)
		}
	})

	t.Run("opened and closed at the same instant charges one day", func(t *testing.T) {
		at := time.Date(2024, time.May, 12, 9, 30, 0, 0, time.UTC)
		if got := billing.ChargeableDays(at, &at, may, may.End); got != 1 {
			t.Errorf("ChargeableDays() = %d, want 1", got)
		}
	})

	t.Run("deleted exactly at window start bills only the earlier month", func(t *testing.T) {
		uploaded := date(2024, time.April, 10)
		deleted := may.Start

		if got := billing.ChargeableDays(uploaded, &deleted, may, may.End); got != 0 {
			t.Errorf("ChargeableDays(May) = %d, want 0", got)
		}
		// The earlier month picks the boundary instant up instead
		april := billing.MonthWindow(2024, time.April)
		if got := billing.ChargeableDays(uploaded, &deleted, april, april.End); got != 21 {
			t.Errorf("ChargeableDays(April) = %d, want 21", got)
		}
	})

	t.Run("zero-length lifetime on the boundary charges the new month", func(t *testing.T) {
		at := may.Start
		if got := billing.ChargeableDays(at, &at, may, may.End); got != 1 {
			t.Errorf("ChargeableDays(May) = %d, want 1", got)
		}
		april := billing.MonthWindow(2024, time.April)
		if got := billing.ChargeableDays(at, &at, april, april.End); got != 0 {
			t.Errorf("ChargeableDays(April) = %d, want 0", got)
		}
	})

	t.Run("current month view caps at the reference instant", func(t *testing.T) {
		uploaded := date(2024, time.May, 1)
		now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
		if got := billing.ChargeableDays(uploaded, nil, may, now); got != 14 {
			t.Errorf("ChargeableDays() = %d, want 14", got)
		}
	})

	t.Run("reference before overlap start clamps to zero", func(t *testing.T) {
		uploaded := date(2024, time.May, 20)
		ref := date(2024, time.May, 5)
		if got := billing.ChargeableDays(uploaded, nil, may, ref); got != 0 {
			t.Errorf("ChargeableDays() = %d, want 0", got)
		}
	})
}

func TestGBDays(t *testing.T) {
	if got := billing.GBDays(1<<30, 10); got != 10 {
		t.Errorf("GBDays(1 GiB, 10) = %v, want 10", got)
	}
	if got := billing.GBDays(1<<29, 10); got != 5 {
		t.Errorf("GBDays(0.5 GiB, 10) = %v, want 5", got)
	}
	if got := billing.GBDays(0, 31); got != 0 {
		t.Errorf("GBDays(0, 31) = %v, want 0", got)
	}
}

func TestCostCents(t *testing.T) {
	t.Run("fractions of a cent truncate toward zero", func(t *testing.T) {
		if got := billing.CostCents(10, 0.0741935); got != 0 {
			t.Errorf("CostCents() = %d, want 0", got)
		}
		if got := billing.CostCents(30, 0.0766667); got != 2 {
			t.Errorf("CostCents() = %d, want 2", got)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		if got := billing.CostCents(-5, 0.08); got != 0 {
			t.Errorf("CostCents() = %d, want 0", got)
		}
	})

	t.Run("monotonic in size and days", func(t *testing.T) {
		may := billing.MonthWindow(2024, time.May)
		rate := billing.Pricing{PricePerGBMonthCents: 2.3}.RatePerGBDay(may)

		prev := int64(-1)
		for days := 0; days <= 31; days++ {
			c := billing.CostCents(billing.GBDays(100<<30, days), rate)
			if c < prev {
				t.Fatalf("cost decreased at %d days: %d < %d", days, c, prev)
			}
			prev = c
		}

		prev = -1
		for gb := int64(0); gb <= 64; gb++ {
			c := billing.CostCents(billing.GBDays(gb<<30, 15), rate)
			if c < prev {
				t.Fatalf("cost decreased at %d GB: %d < %d", gb, c, prev)
			}
			prev = c
		}
	})
}

func TestRatePerGBDay(t *testing.T) {
	p := billing.Pricing{PricePerGBMonthCents: 2.3}

	feb := billing.MonthWindow(2024, time.February)
	jan := billing.MonthWindow(2024, time.January)

	if p.RatePerGBDay(feb) <= p.RatePerGBDay(jan) {
		t.Error("a shorter month must have a higher per-day rate for the same monthly price")
	}

	// 1 GB stored all month costs the monthly price, whatever the month
	for _, w := range []billing.Window{feb, jan} {
		gbDays := billing.GBDays(1<<30, w.Days())
		cents := gbDays * p.RatePerGBDay(w)
		if cents < 2.29 || cents > 2.31 {
			t.Errorf("full-month cost for %v = %v cents, want ~2.3", w.Month(), cents)
		}
	}
}
