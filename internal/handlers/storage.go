package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/middleware"
)

type StorageHandler struct {
	ledger *ledger.Ledger
}

func NewStorageHandler(led *ledger.Ledger) *StorageHandler {
	return &StorageHandler{ledger: led}
}

type storageSummary struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}

// Summary returns the caller's live file count and total bytes stored
func (h *StorageHandler) Summary(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var cached storageSummary
	if err := database.CacheGet(database.StorageCacheKey(user.ID), &cached); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached,
		})
	}

	count, bytes, err := h.ledger.ActiveTotals(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read storage totals",
		})
	}

	summary := storageSummary{TotalFiles: count, TotalBytes: bytes}
	if err := database.CacheSet(database.StorageCacheKey(user.ID), summary, database.CacheTTLStorage); err != nil {
		log.Printf("Failed to cache storage summary for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}
