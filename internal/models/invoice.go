package models

import (
	"encoding/json"
	"time"
)

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusFailed   InvoiceStatus = "failed"
	InvoiceStatusRefunded InvoiceStatus = "refunded"
)

// Invoice is an immutable monthly billing snapshot. At most one invoice
// exists per (user, year, month); the totals are frozen at generation time
// and only Status/PaidAt/PaymentRef change afterwards, written back by the
// external payment processor.
type Invoice struct {
	ID     uint `gorm:"column:id;primaryKey" json:"id"`
	UserID uint `gorm:"column:user_id;not null;index;uniqueIndex:ux_invoices_period" json:"user_id"`

	// Billing period
	BillingYear  int `gorm:"column:billing_year;not null;uniqueIndex:ux_invoices_period" json:"billing_year"`
	BillingMonth int `gorm:"column:billing_month;not null;uniqueIndex:ux_invoices_period" json:"billing_month"` // 1-12

	// Usage and cost
	TotalGBDays int64 `gorm:"column:total_gb_days;not null" json:"total_gb_days"` // GB-days x100 for 2-decimal precision
	CostCents   int64 `gorm:"column:cost_cents;not null" json:"cost_cents"`

	// Status
	Status InvoiceStatus `gorm:"column:status;size:20;default:pending;index" json:"status"`

	// Dates
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	DueDate   time.Time  `gorm:"column:due_date;not null" json:"due_date"`
	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	// External payment reference (opaque, e.g. a Stripe invoice id)
	PaymentRef string `gorm:"column:payment_ref;size:100" json:"payment_ref,omitempty"`

	// Per-file breakdown kept for audit, never read back for recomputation
	Details json.RawMessage `gorm:"column:details;type:json" json:"details,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}
