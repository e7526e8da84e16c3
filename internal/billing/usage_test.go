package billing_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/baketsu/backend/internal/billing"
	"github.com/baketsu/backend/internal/models"
)

var testPricing = billing.Pricing{PricePerGBMonthCents: 2.3}

func TestBuildUsageReport(t *testing.T) {
	t.Run("one GiB for a whole 30-day month costs the monthly price", func(t *testing.T) {
		// June 2024 has 30 days
		uploaded := date(2024, time.June, 1)
		now := time.Date(2024, time.June, 30, 23, 0, 0, 0, time.UTC)

		active := []models.UserFile{
			{ID: 1, Filename: "big.bin", FileSize: 1 << 30, UploadedAt: uploaded},
		}

		report := billing.BuildUsageReport(active, nil, now, testPricing)

		// 29 elapsed days at 2.3/30 cents per GB-day truncates to 2 cents,
		// same as the full-month projection
		if report.CostCents != 2 {
			t.Errorf("CostCents = %d, want 2", report.CostCents)
		}
		if report.ProjectedCostCents != report.CostCents {
			t.Errorf("ProjectedCostCents = %d, want %d", report.ProjectedCostCents, report.CostCents)
		}
		if len(report.ActiveItems) != 1 {
			t.Fatalf("len(ActiveItems) = %d, want 1", len(report.ActiveItems))
		}
		if report.ActiveItems[0].Days != 29 {
			t.Errorf("Days = %d, want 29", report.ActiveItems[0].Days)
		}
	})

	t.Run("deleted file contributes the same actual and projected cost", func(t *testing.T) {
		now := time.Date(2024, time.May, 25, 10, 0, 0, 0, time.UTC)
		deleted := date(2024, time.May, 20)

		historical := []models.UserFile{
			{ID: 2, Filename: "gone.bin", FileSize: 8 << 30, UploadedAt: date(2024, time.May, 10), DeletedAt: &deleted},
		}

		report := billing.BuildUsageReport(nil, historical, now, testPricing)

		if len(report.HistoricalItems) != 1 {
			t.Fatalf("len(HistoricalItems) = %d, want 1", len(report.HistoricalItems))
		}
		if report.HistoricalItems[0].Days != 10 {
			t.Errorf("Days = %d, want 10", report.HistoricalItems[0].Days)
		}
		if report.ProjectedCostCents != report.CostCents {
			t.Errorf("ProjectedCostCents = %d, want %d (closed holding cost is final)",
				report.ProjectedCostCents, report.CostCents)
		}
	})

	t.Run("file deleted in an earlier month is skipped", func(t *testing.T) {
		now := time.Date(2024, time.May, 25, 10, 0, 0, 0, time.UTC)
		deleted := date(2024, time.April, 2)

		historical := []models.UserFile{
			{ID: 3, Filename: "old.bin", FileSize: 4 << 30, UploadedAt: date(2024, time.March, 1), DeletedAt: &deleted},
		}

		report := billing.BuildUsageReport(nil, historical, now, testPricing)
		if report.CostCents != 0 || len(report.HistoricalItems) != 0 {
			t.Errorf("expected empty report, got cost=%d items=%d", report.CostCents, len(report.HistoricalItems))
		}
	})

	t.Run("deterministic over an identical snapshot", func(t *testing.T) {
		now := time.Date(2024, time.May, 25, 10, 0, 0, 0, time.UTC)
		deleted := date(2024, time.May, 12)
		active := []models.UserFile{
			{ID: 1, Filename: "a.bin", FileSize: 3 << 30, UploadedAt: date(2024, time.May, 2)},
			{ID: 2, Filename: "b.bin", FileSize: 7 << 30, UploadedAt: date(2024, time.April, 10)},
		}
		historical := []models.UserFile{
			{ID: 3, Filename: "c.bin", FileSize: 2 << 30, UploadedAt: date(2024, time.May, 5), DeletedAt: &deleted},
		}

		first := billing.BuildUsageReport(active, historical, now, testPricing)
		second := billing.BuildUsageReport(active, historical, now, testPricing)
		if !reflect.DeepEqual(first, second) {
			t.Error("identical snapshots produced different reports")
		}
	})
}

func TestBuildInvoicePreview(t *testing.T) {
	may := billing.MonthWindow(2024, time.May)

	t.Run("two GiB from day 10 to day 20 bills ten days", func(t *testing.T) {
		deleted := date(2024, time.May, 20)
		files := []models.UserFile{
			{ID: 1, Filename: "data.bin", FileSize: 2 << 30, UploadedAt: date(2024, time.May, 10), DeletedAt: &deleted},
		}

		preview := billing.BuildInvoicePreview(files, may, testPricing)

		if len(preview.Items) != 1 {
			t.Fatalf("len(Items) = %d, want 1", len(preview.Items))
		}
		if preview.Items[0].Days != 10 {
			t.Errorf("Days = %d, want 10", preview.Items[0].Days)
		}
		if preview.TotalGBDays != 20 {
			t.Errorf("TotalGBDays = %v, want 20", preview.TotalGBDays)
		}
		// 20 GB-days at 2.3/31 cents truncates to 1 cent
		if preview.CostCents != 1 {
			t.Errorf("CostCents = %d, want 1", preview.CostCents)
		}
	})

	t.Run("holdings outside the window are excluded", func(t *testing.T) {
		deletedMarch := date(2024, time.March, 20)
		files := []models.UserFile{
			{ID: 1, Filename: "before.bin", FileSize: 1 << 30, UploadedAt: date(2024, time.February, 1), DeletedAt: &deletedMarch},
			{ID: 2, Filename: "after.bin", FileSize: 1 << 30, UploadedAt: date(2024, time.June, 1)},
		}

		preview := billing.BuildInvoicePreview(files, may, testPricing)
		if len(preview.Items) != 0 || preview.CostCents != 0 {
			t.Errorf("expected empty preview, got %d items, %d cents", len(preview.Items), preview.CostCents)
		}
	})

	t.Run("active holding bills through the window end", func(t *testing.T) {
		files := []models.UserFile{
			{ID: 1, Filename: "keep.bin", FileSize: 1 << 30, UploadedAt: date(2024, time.January, 1)},
		}

		preview := billing.BuildInvoicePreview(files, may, testPricing)
		if preview.Items[0].Days != 31 {
			t.Errorf("Days = %d, want 31", preview.Items[0].Days)
		}
	})

	t.Run("idempotent over an unchanged snapshot", func(t *testing.T) {
		deleted := date(2024, time.May, 18)
		files := []models.UserFile{
			{ID: 1, Filename: "x.bin", FileSize: 5 << 30, UploadedAt: date(2024, time.April, 20)},
			{ID: 2, Filename: "y.bin", FileSize: 3 << 30, UploadedAt: date(2024, time.May, 3), DeletedAt: &deleted},
		}

		first := billing.BuildInvoicePreview(files, may, testPricing)
		second := billing.BuildInvoicePreview(files, may, testPricing)
		if !reflect.DeepEqual(first, second) {
			t.Error("identical snapshots produced different previews")
		}
		if first.CostCents != second.CostCents || first.TotalGBDays != second.TotalGBDays {
			t.Error("totals differ between identical runs")
		}
	})
}
