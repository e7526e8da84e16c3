package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/baketsu/backend/internal/billing"
	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/middleware"
	"github.com/baketsu/backend/internal/models"
)

type BillingHandler struct {
	ledger   *ledger.Ledger
	invoices *billing.InvoiceService
	pricing  billing.Pricing
}

func NewBillingHandler(led *ledger.Ledger, invoices *billing.InvoiceService, pricing billing.Pricing) *BillingHandler {
	return &BillingHandler{ledger: led, invoices: invoices, pricing: pricing}
}

// Usage returns the current month's storage cost so far, the projected
// month-end cost, and a per-file breakdown. Cached briefly in Redis;
// every ledger mutation invalidates the cache.
func (h *BillingHandler) Usage(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var cached billing.UsageReport
	if err := database.CacheGet(database.UsageCacheKey(user.ID), &cached); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached,
		})
	}

	now := time.Now().UTC()
	monthStart := billing.CurrentMonth(now).Start

	active, err := h.ledger.ListActive(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read ledger",
		})
	}
	historical, err := h.ledger.ListDeletedSince(user.ID, monthStart)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read ledger",
		})
	}

	report := billing.BuildUsageReport(active, historical, now, h.pricing)

	if err := database.CacheSet(database.UsageCacheKey(user.ID), report, database.CacheTTLUsage); err != nil {
		log.Printf("Failed to cache usage report for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// GenerateInvoice creates the invoice for a billing period. Without
// year/month it settles the previous calendar month. One invoice per
// period: a repeat call gets a conflict, never a duplicate.
func (h *BillingHandler) GenerateInvoice(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body",
			})
		}
	}
	if (req.Year == 0) != (req.Month == 0) || req.Month < 0 || req.Month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "year and month must be provided together",
		})
	}

	invoice, err := h.invoices.Generate(user.ID, req.Year, time.Month(req.Month), time.Now().UTC())
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Invoice already exists for this period",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate invoice",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Invoice generated successfully",
		"data": fiber.Map{
			"invoice_id":    invoice.ID,
			"billing_year":  invoice.BillingYear,
			"billing_month": invoice.BillingMonth,
			"cost_cents":    invoice.CostCents,
			"total_gb_days": float64(invoice.TotalGBDays) / 100,
		},
	})
}

// ListInvoices returns the caller's most recent invoices, newest first
func (h *BillingHandler) ListInvoices(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	invoices, err := h.invoices.List(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list invoices",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    invoices,
	})
}

// GetInvoice returns one invoice owned by the caller
func (h *BillingHandler) GetInvoice(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	invoiceID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid invoice id",
		})
	}

	invoice, err := h.invoices.Get(user.ID, invoiceID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Invoice not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    invoice,
	})
}

// RecordPayment writes back a settlement outcome from the payment processor.
// The invoice totals stay frozen; only the status fields change.
func (h *BillingHandler) RecordPayment(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	invoiceID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid invoice id",
		})
	}

	var req struct {
		Status     string `json:"status"`
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	invoice, err := h.invoices.RecordPayment(user.ID, invoiceID,
		models.InvoiceStatus(req.Status), req.PaymentRef, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Status must be paid, failed or refunded",
			})
		case errors.Is(err, billing.ErrInvoiceNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Invoice not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update invoice",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invoice status updated",
		"data":    invoice,
	})
}

// DeleteInvoice destroys an invoice record (administrative override)
func (h *BillingHandler) DeleteInvoice(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	invoiceID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid invoice id",
		})
	}

	if err := h.invoices.Delete(user.ID, invoiceID); err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Invoice not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete invoice",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invoice deleted",
	})
}
