package billing

import (
	"time"

	"github.com/baketsu/backend/internal/models"
)

// ItemUsage is the per-file line of a usage report or invoice preview
type ItemUsage struct {
	FileID     uint    `json:"file_id"`
	Filename   string  `json:"filename"`
	SizeBytes  int64   `json:"size_bytes"`
	SizeGB     float64 `json:"size_gb"`
	Days       int     `json:"days_stored"`
	GBDays     float64 `json:"gb_days"`
	CostCents  int64   `json:"cost_cents"`
	WasDeleted bool    `json:"was_deleted"`
}

// UsageReport is the live view of the current billing month: what storage
// has cost so far and what it lands at if nothing else is deleted.
type UsageReport struct {
	CostCents          int64       `json:"current_month_cost"`
	ProjectedCostCents int64       `json:"projected_month_cost"`
	StorageGBDays      float64     `json:"current_month_storage_days"`
	ActiveItems        []ItemUsage `json:"active_items"`
	HistoricalItems    []ItemUsage `json:"historical_items"`
}

// InvoicePreview is the settled figure for one window over a ledger snapshot
type InvoicePreview struct {
	TotalGBDays float64     `json:"total_gb_days"`
	CostCents   int64       `json:"cost_cents"`
	Items       []ItemUsage `json:"items"`
}

// BuildUsageReport computes the current month's cost from a ledger snapshot.
// active holds the user's live files; historical holds files deleted inside
// the current month. Pure: same snapshot and clock, same report.
//
// Cost so far charges actual elapsed days; the projection charges the whole
// month for live files. A deleted file's cost is final, so it contributes
// the same amount to both figures.
func BuildUsageReport(active, historical []models.UserFile, now time.Time, p Pricing) UsageReport {
	w := CurrentMonth(now)
	rate := p.RatePerGBDay(w)

	report := UsageReport{
		ActiveItems:     make([]ItemUsage, 0, len(active)),
		HistoricalItems: make([]ItemUsage, 0, len(historical)),
	}

	for _, f := range active {
		days := ChargeableDays(f.UploadedAt, nil, w, now)
		gbDays := GBDays(f.FileSize, days)
		cost := CostCents(gbDays, rate)

		projDays := ChargeableDays(f.UploadedAt, nil, w, w.End)
		projCost := CostCents(GBDays(f.FileSize, projDays), rate)

		report.CostCents += cost
		report.ProjectedCostCents += projCost
		report.StorageGBDays += gbDays
		report.ActiveItems = append(report.ActiveItems, ItemUsage{
			FileID:    f.ID,
			Filename:  f.Filename,
			SizeBytes: f.FileSize,
			SizeGB:    float64(f.FileSize) / float64(1<<30),
			Days:      days,
			GBDays:    gbDays,
			CostCents: cost,
		})
	}

	for _, f := range historical {
		days := ChargeableDays(f.UploadedAt, f.DeletedAt, w, now)
		if days == 0 {
			continue
		}
		gbDays := GBDays(f.FileSize, days)
		cost := CostCents(gbDays, rate)

		report.CostCents += cost
		report.ProjectedCostCents += cost // closed holding, cost is final
		report.StorageGBDays += gbDays
		report.HistoricalItems = append(report.HistoricalItems, ItemUsage{
			FileID:     f.ID,
			Filename:   f.Filename,
			SizeBytes:  f.FileSize,
			SizeGB:     float64(f.FileSize) / float64(1<<30),
			Days:       days,
			GBDays:     gbDays,
			CostCents:  cost,
			WasDeleted: true,
		})
	}

	return report
}

// BuildInvoicePreview prorates every holding over the window and sums the
// result. files should be the ledger rows whose lifetime can overlap the
// window (uploaded before it ends); rows that miss the window entirely are
// skipped here too, so passing extra rows is harmless.
func BuildInvoicePreview(files []models.UserFile, w Window, p Pricing) InvoicePreview {
	rate := p.RatePerGBDay(w)

	preview := InvoicePreview{Items: make([]ItemUsage, 0, len(files))}

	for _, f := range files {
		days := ChargeableDays(f.UploadedAt, f.DeletedAt, w, w.End)
		if days == 0 {
			continue
		}
		gbDays := GBDays(f.FileSize, days)
		cost := CostCents(gbDays, rate)

		preview.TotalGBDays += gbDays
		preview.CostCents += cost
		preview.Items = append(preview.Items, ItemUsage{
			FileID:     f.ID,
			Filename:   f.Filename,
			SizeBytes:  f.FileSize,
			SizeGB:     float64(f.FileSize) / float64(1<<30),
			Days:       days,
			GBDays:     gbDays,
			CostCents:  cost,
			WasDeleted: f.DeletedAt != nil,
		})
	}

	return preview
}
