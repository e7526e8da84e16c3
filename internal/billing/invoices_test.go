package billing_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/baketsu/backend/internal/billing"
	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/models"
	"github.com/baketsu/backend/internal/testutil"
	"gorm.io/gorm"
)

func newInvoiceService(t *testing.T) (*billing.InvoiceService, *ledger.Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	led := ledger.New(db)
	return billing.NewInvoiceService(db, led, testPricing), led, db
}

func TestGenerate(t *testing.T) {
	now := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)

	t.Run("creates a pending invoice from the ledger", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		f, err := led.Open(1, nil, "data.bin", "owner/1/data.bin", 2<<30, date(2024, time.May, 10))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := led.Close(1, f.ID, date(2024, time.May, 20)); err != nil {
			t.Fatalf("Close: %v", err)
		}

		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		if inv.Status != models.InvoiceStatusPending {
			t.Errorf("Status = %q, want %q", inv.Status, models.InvoiceStatusPending)
		}
		if inv.BillingYear != 2024 || inv.BillingMonth != 5 {
			t.Errorf("period = %d-%d, want 2024-5", inv.BillingYear, inv.BillingMonth)
		}
		// 2 GB for 10 days = 20 GB-days, stored x100
		if inv.TotalGBDays != 2000 {
			t.Errorf("TotalGBDays = %d, want 2000", inv.TotalGBDays)
		}
		if inv.CostCents != 1 {
			t.Errorf("CostCents = %d, want 1", inv.CostCents)
		}
		if want := now.AddDate(0, 0, 7); !inv.DueDate.Equal(want) {
			t.Errorf("DueDate = %v, want %v", inv.DueDate, want)
		}
	})

	t.Run("freezes pricing into the details blob", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		if _, err := led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1)); err != nil {
			t.Fatalf("Open: %v", err)
		}
		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		var details struct {
			Files                []billing.ItemUsage `json:"files"`
			PricePerGBMonthCents float64             `json:"price_per_gb_month_cents"`
		}
		if err := json.Unmarshal(inv.Details, &details); err != nil {
			t.Fatalf("unmarshal details: %v", err)
		}
		if details.PricePerGBMonthCents != testPricing.PricePerGBMonthCents {
			t.Errorf("frozen price = %v, want %v", details.PricePerGBMonthCents, testPricing.PricePerGBMonthCents)
		}
		if len(details.Files) != 1 || details.Files[0].Days != 31 {
			t.Errorf("details.Files = %+v, want one 31-day line", details.Files)
		}
	})

	t.Run("second generation for the same period fails without a duplicate", func(t *testing.T) {
		svc, led, db := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		if _, err := svc.Generate(1, 2024, time.May, now); err != nil {
			t.Fatalf("first Generate: %v", err)
		}
		if _, err := svc.Generate(1, 2024, time.May, now); !errors.Is(err, billing.ErrInvoiceExists) {
			t.Errorf("second Generate err = %v, want ErrInvoiceExists", err)
		}

		var count int64
		db.Model(&models.Invoice{}).Where("user_id = ?", 1).Count(&count)
		if count != 1 {
			t.Errorf("invoice count = %d, want 1", count)
		}
	})

	t.Run("zero period defaults to the previous month", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		inv, err := svc.Generate(1, 0, 0, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if inv.BillingYear != 2024 || inv.BillingMonth != 5 {
			t.Errorf("period = %d-%d, want 2024-5", inv.BillingYear, inv.BillingMonth)
		}
	})

	t.Run("empty ledger still yields a zero invoice", func(t *testing.T) {
		svc, _, _ := newInvoiceService(t)

		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if inv.TotalGBDays != 0 || inv.CostCents != 0 {
			t.Errorf("got %d GB-days, %d cents, want zeros", inv.TotalGBDays, inv.CostCents)
		}
	})
}

func TestGetAndList(t *testing.T) {
	now := time.Date(2025, time.March, 2, 9, 0, 0, 0, time.UTC)

	t.Run("get is scoped to the owner", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		if _, err := svc.Get(1, inv.ID); err != nil {
			t.Errorf("Get as owner: %v", err)
		}
		if _, err := svc.Get(2, inv.ID); !errors.Is(err, billing.ErrInvoiceNotFound) {
			t.Errorf("Get as other user err = %v, want ErrInvoiceNotFound", err)
		}
	})

	t.Run("list caps at twelve, newest first", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.January, 1))
		for i := 0; i < 14; i++ {
			m := time.January + time.Month(i%12)
			y := 2024 + i/12
			at := now.Add(time.Duration(i) * time.Hour)
			if _, err := svc.Generate(1, y, m, at); err != nil {
				t.Fatalf("Generate %d-%d: %v", y, m, err)
			}
		}

		invoices, err := svc.List(1)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(invoices) != 12 {
			t.Fatalf("len = %d, want 12", len(invoices))
		}
		for i := 1; i < len(invoices); i++ {
			if invoices[i].CreatedAt.After(invoices[i-1].CreatedAt) {
				t.Errorf("invoices out of order at %d", i)
			}
		}
	})
}

func TestDeleteInvoice(t *testing.T) {
	now := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)
	svc, led, _ := newInvoiceService(t)

	led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
	inv, err := svc.Generate(1, 2024, time.May, now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := svc.Delete(2, inv.ID); !errors.Is(err, billing.ErrInvoiceNotFound) {
		t.Errorf("Delete as other user err = %v, want ErrInvoiceNotFound", err)
	}
	if err := svc.Delete(1, inv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(1, inv.ID); !errors.Is(err, billing.ErrInvoiceNotFound) {
		t.Errorf("Get after delete err = %v, want ErrInvoiceNotFound", err)
	}

	// The period is open for regeneration
	if _, err := svc.Generate(1, 2024, time.May, now); err != nil {
		t.Errorf("regenerate after delete: %v", err)
	}
}

func TestRecordPayment(t *testing.T) {
	now := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)

	t.Run("paid stamps paid_at and keeps totals frozen", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		paidAt := now.Add(24 * time.Hour)
		updated, err := svc.RecordPayment(1, inv.ID, models.InvoiceStatusPaid, "ch_123", paidAt)
		if err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if updated.Status != models.InvoiceStatusPaid {
			t.Errorf("Status = %q, want paid", updated.Status)
		}
		if updated.PaidAt == nil || !updated.PaidAt.Equal(paidAt) {
			t.Errorf("PaidAt = %v, want %v", updated.PaidAt, paidAt)
		}
		if updated.PaymentRef != "ch_123" {
			t.Errorf("PaymentRef = %q, want ch_123", updated.PaymentRef)
		}

		stored, err := svc.Get(1, inv.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if stored.Status != models.InvoiceStatusPaid || stored.PaidAt == nil {
			t.Errorf("stored status = %q paid_at = %v", stored.Status, stored.PaidAt)
		}
		if stored.TotalGBDays != inv.TotalGBDays || stored.CostCents != inv.CostCents {
			t.Errorf("totals changed: %d/%d, want %d/%d",
				stored.TotalGBDays, stored.CostCents, inv.TotalGBDays, inv.CostCents)
		}
	})

	t.Run("rejects statuses outside the state machine", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		for _, status := range []models.InvoiceStatus{models.InvoiceStatusPending, "settled", ""} {
			if _, err := svc.RecordPayment(1, inv.ID, status, "", now); !errors.Is(err, billing.ErrInvalidStatus) {
				t.Errorf("RecordPayment(%q) err = %v, want ErrInvalidStatus", status, err)
			}
		}
	})

	t.Run("scoped to the owner", func(t *testing.T) {
		svc, led, _ := newInvoiceService(t)

		led.Open(1, nil, "a.bin", "owner/1/a.bin", 1<<30, date(2024, time.May, 1))
		inv, err := svc.Generate(1, 2024, time.May, now)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, err := svc.RecordPayment(2, inv.ID, models.InvoiceStatusFailed, "", now); !errors.Is(err, billing.ErrInvoiceNotFound) {
			t.Errorf("RecordPayment as other user err = %v, want ErrInvoiceNotFound", err)
		}
	})
}

func TestPreviewMatchesGenerate(t *testing.T) {
	now := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)
	svc, led, _ := newInvoiceService(t)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("f%d.bin", i)
		f, err := led.Open(1, nil, name, "owner/1/"+name, int64(i+1)<<30, date(2024, time.May, i+1))
		if err != nil {
			t.Fatalf("Open %s: %v", name, err)
		}
		if i%2 == 1 {
			if _, err := led.Close(1, f.ID, date(2024, time.May, 20)); err != nil {
				t.Fatalf("Close %s: %v", name, err)
			}
		}
	}

	w := billing.MonthWindow(2024, time.May)
	preview, err := svc.Preview(1, w)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	inv, err := svc.Generate(1, 2024, time.May, now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if inv.CostCents != preview.CostCents {
		t.Errorf("invoice cost %d != preview cost %d", inv.CostCents, preview.CostCents)
	}
	if inv.TotalGBDays != int64(preview.TotalGBDays*100) {
		t.Errorf("invoice GB-days %d != preview %v", inv.TotalGBDays, preview.TotalGBDays)
	}
}
