package billing

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrInvoiceExists means an invoice was already generated for the period
	ErrInvoiceExists = errors.New("invoice already exists for this period")

	// ErrInvoiceNotFound means the invoice is absent or owned by someone else
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvalidStatus means the reported settlement status is not one the
	// state machine accepts
	ErrInvalidStatus = errors.New("invalid invoice status")
)

// invoiceListLimit caps how many invoices List returns (one year of months)
const invoiceListLimit = 12

// invoiceDueDays is how long after generation an invoice falls due
const invoiceDueDays = 7

// invoiceDetails is the audit blob frozen into each invoice. It records the
// pricing in force at generation time so the figures stay explainable after
// a price change.
type invoiceDetails struct {
	Files                []ItemUsage `json:"files"`
	PricePerGBMonthCents float64     `json:"price_per_gb_month_cents"`
	PricePerGBDayCents   float64     `json:"price_per_gb_day_cents"`
}

// InvoiceService creates and serves monthly invoice snapshots. Generation is
// externally triggered (an operator or a cron hitting the endpoint); there
// is no background scheduler.
type InvoiceService struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	pricing Pricing
}

func NewInvoiceService(db *gorm.DB, led *ledger.Ledger, pricing Pricing) *InvoiceService {
	return &InvoiceService{db: db, ledger: led, pricing: pricing}
}

// Preview computes the invoice figures for a window without persisting
func (s *InvoiceService) Preview(userID uint, w Window) (InvoicePreview, error) {
	files, err := s.ledger.ListOverlapping(userID, w.Start, w.End)
	if err != nil {
		return InvoicePreview{}, err
	}
	return BuildInvoicePreview(files, w, s.pricing), nil
}

// Generate creates the invoice for a billing period. year/month of zero
// default to the previous calendar month. Exactly one invoice may exist per
// period; a second call fails with ErrInvoiceExists and creates nothing.
func (s *InvoiceService) Generate(userID uint, year int, month time.Month, now time.Time) (*models.Invoice, error) {
	w := PreviousMonth(now)
	if year != 0 && month != 0 {
		w = MonthWindow(year, month)
	}

	var existing models.Invoice
	err := s.db.Where("user_id = ? AND billing_year = ? AND billing_month = ?",
		userID, w.Year(), int(w.Month())).First(&existing).Error
	if err == nil {
		return nil, ErrInvoiceExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	preview, err := s.Preview(userID, w)
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(invoiceDetails{
		Files:                preview.Items,
		PricePerGBMonthCents: s.pricing.PricePerGBMonthCents,
		PricePerGBDayCents:   s.pricing.RatePerGBDay(w),
	})
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		UserID:       userID,
		BillingYear:  w.Year(),
		BillingMonth: int(w.Month()),
		TotalGBDays:  int64(preview.TotalGBDays * 100), // x100, 2-decimal precision
		CostCents:    preview.CostCents,
		Status:       models.InvoiceStatusPending,
		CreatedAt:    now.UTC(),
		DueDate:      now.UTC().AddDate(0, 0, invoiceDueDays),
		Details:      details,
	}

	if err := s.db.Create(&invoice).Error; err != nil {
		// Unique index on (user_id, billing_year, billing_month): a
		// concurrent Generate for the same period lost the race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrInvoiceExists
		}
		return nil, err
	}

	return &invoice, nil
}

// Get returns one invoice scoped to its owner
func (s *InvoiceService) Get(userID, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.Where("id = ? AND user_id = ?", invoiceID, userID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// List returns the user's most recent invoices, newest first, capped at 12
func (s *InvoiceService) List(userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(invoiceListLimit).Find(&invoices).Error
	return invoices, err
}

// RecordPayment writes back the settlement outcome reported by the external
// payment processor. The frozen totals never change; only status, paid_at
// and the external reference do. Pending is not a valid write-back target:
// an invoice starts there and the processor only reports outcomes.
func (s *InvoiceService) RecordPayment(userID, invoiceID uint, status models.InvoiceStatus, ref string, at time.Time) (*models.Invoice, error) {
	switch status {
	case models.InvoiceStatusPaid, models.InvoiceStatusFailed, models.InvoiceStatusRefunded:
	default:
		return nil, ErrInvalidStatus
	}

	invoice, err := s.Get(userID, invoiceID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if ref != "" {
		updates["payment_ref"] = ref
	}
	if status == models.InvoiceStatusPaid {
		paidAt := at.UTC()
		updates["paid_at"] = paidAt
		invoice.PaidAt = &paidAt
	}

	if err := s.db.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	invoice.Status = status
	if ref != "" {
		invoice.PaymentRef = ref
	}
	return invoice, nil
}

// Delete destroys an invoice record regardless of status. This is an
// administrative override, not part of the payment state machine.
func (s *InvoiceService) Delete(userID, invoiceID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", invoiceID, userID).Delete(&models.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
