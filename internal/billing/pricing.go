package billing

import "time"

// Pricing carries the configured storage rate. It is passed explicitly into
// every calculation so that an already-generated invoice stays reproducible
// from its own details blob even if the configured price changes later.
type Pricing struct {
	// Cents per GB per month, e.g. 2.3 for $0.023/GB-month
	PricePerGBMonthCents float64
}

// RatePerGBDay returns the per-GB-day rate in cents for a billing window,
// derived from the window's actual day count.
func (p Pricing) RatePerGBDay(w Window) float64 {
	return p.PricePerGBMonthCents / float64(w.Days())
}

// GBDays converts a file size and a day count into GB-days (1 GB = 2^30 bytes)
func GBDays(sizeBytes int64, days int) float64 {
	return float64(sizeBytes) / float64(1<<30) * float64(days)
}

// CostCents converts GB-days into cents at the given rate. Fractions of a
// cent truncate toward zero; the same truncation applies on the live usage
// path and the invoice path so the two never disagree.
func CostCents(gbDays, ratePerGBDayCents float64) int64 {
	c := int64(gbDays * ratePerGBDayCents)
	if c < 0 {
		return 0
	}
	return c
}

// ChargeableDays returns the whole days a file's lifetime overlaps the
// billing window. ref caps the end of the overlap: callers pass "now" for a
// month still running and w.End when settling a closed month.
//
// The day the file was uploaded counts; the day it was deleted does not,
// except that any overlap charges at least one day, so a file uploaded and
// deleted on the same day still costs one day of storage. No overlap
// returns 0, never a negative count.
//
// A deletion exactly at w.Start charges nothing here: that instant closed
// out the previous month, which already billed it. The one exception is a
// zero-length lifetime sitting on the boundary, which no earlier window
// can see.
func ChargeableDays(uploadedAt time.Time, deletedAt *time.Time, w Window, ref time.Time) int {
	uploadedAt = uploadedAt.UTC()
	ref = ref.UTC()

	// Uploaded after the window closed
	if !uploadedAt.Before(w.End) {
		return 0
	}
	// Deleted on or before the window opened
	if deletedAt != nil {
		d := deletedAt.UTC()
		if d.Before(w.Start) {
			return 0
		}
		if d.Equal(w.Start) && uploadedAt.Before(d) {
			return 0
		}
	}

	start := uploadedAt
	if start.Before(w.Start) {
		start = w.Start
	}

	end := ref
	if deletedAt != nil && deletedAt.UTC().Before(end) {
		end = deletedAt.UTC()
	}
	if end.After(w.End) {
		end = w.End
	}

	days := daysBetween(startOfDay(start), startOfDay(end))
	if days < 0 {
		return 0
	}
	if days == 0 {
		// Same-day overlap: minimum one-day charge
		return 1
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
