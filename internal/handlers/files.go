package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/baketsu/backend/internal/config"
	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/middleware"
	"github.com/baketsu/backend/internal/models"
	"github.com/baketsu/backend/internal/storage"
)

// presignTTL is how long presigned preview/download URLs stay valid
const presignTTL = 5 * time.Minute

type FileHandler struct {
	cfg    *config.Config
	store  storage.ObjectStore
	ledger *ledger.Ledger
}

func NewFileHandler(cfg *config.Config, store storage.ObjectStore, led *ledger.Ledger) *FileHandler {
	return &FileHandler{cfg: cfg, store: store, ledger: led}
}

// objectKey builds the object-store key for a file. The uuid segment keeps
// keys unique across deleted-and-reuploaded files with the same name; the
// format is a convention, not a contract: nothing outside this package
// parses it.
func objectKey(userID uint, folderID *uint, filename string) string {
	unique := uuid.New().String()
	if folderID != nil {
		return fmt.Sprintf("owner/%d/folders/%d/%s_%s", userID, *folderID, unique, filename)
	}
	return fmt.Sprintf("owner/%d/%s_%s", userID, unique, filename)
}

// Upload stores one or more multipart files. The ledger record is committed
// before the object-store write; a failed write rolls the record back so a
// holding never points at bytes that were never stored.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No files provided",
		})
	}

	var folderID *uint
	if v := c.FormValue("folder_id"); v != "" {
		id, err := parseUint(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid folder_id",
			})
		}
		var folder models.Folder
		if err := database.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&folder).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Folder not found",
			})
		}
		folderID = &folder.ID
	}

	uploaded := make([]fiber.Map, 0, len(form.File["files"]))

	for _, fileHeader := range form.File["files"] {
		filename := fileHeader.Filename
		if fileHeader.Size == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": fmt.Sprintf("File %s is empty", filename),
			})
		}

		key := objectKey(user.ID, folderID, filename)

		// Ledger first, then bytes
		record, err := h.ledger.Open(user.ID, folderID, filename, key, fileHeader.Size, time.Now())
		if err != nil {
			if errors.Is(err, ledger.ErrConflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"success": false,
					"message": fmt.Sprintf("A file named %s already exists in this folder", filename),
				})
			}
			if errors.Is(err, ledger.ErrValidation) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": "Invalid file",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to record file",
			})
		}

		src, err := fileHeader.Open()
		if err == nil {
			err = h.store.Put(c.Context(), key, src, fileHeader.Header.Get("Content-Type"))
			src.Close()
		}
		if err != nil {
			log.Printf("Object store write failed for %s: %v", key, err)
			if rbErr := h.ledger.Rollback(record.ID); rbErr != nil {
				// Compensating delete failed too: the ledger now references
				// bytes that do not exist. Needs operator attention.
				log.Printf("ALERT: failed to roll back ledger record %d for %s after store failure: %v",
					record.ID, key, rbErr)
			}
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"message": fmt.Sprintf("Failed to store %s", filename),
			})
		}

		uploaded = append(uploaded, fiber.Map{
			"file_id":  record.ID,
			"filename": record.Filename,
		})
	}

	database.InvalidateUsageCache(user.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  "Files uploaded successfully",
		"uploaded": uploaded,
	})
}

// List returns the user's live files, optionally scoped to one folder
func (h *FileHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var (
		files []models.UserFile
		err   error
	)
	if v := c.Query("folder_id"); v != "" {
		if v == "root" {
			files, err = h.ledger.ListActiveInFolder(user.ID, nil)
		} else {
			id, perr := parseUint(v)
			if perr != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": "Invalid folder_id",
				})
			}
			files, err = h.ledger.ListActiveInFolder(user.ID, &id)
		}
	} else {
		files, err = h.ledger.ListActive(user.ID)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list files",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    files,
	})
}

// Get returns one file's details plus a short-lived preview URL
func (h *FileHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	fileID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.ledger.Get(user.ID, fileID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}

	var previewURL string
	if file.Active() {
		previewURL, err = h.store.PresignGet(c.Context(), file.FileKey, presignTTL)
		if err != nil {
			log.Printf("Failed to presign %s: %v", file.FileKey, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":          file.ID,
			"filename":    file.Filename,
			"file_size":   file.FileSize,
			"folder_id":   file.FolderID,
			"uploaded_at": file.UploadedAt,
			"deleted_at":  file.DeletedAt,
			"preview_url": previewURL,
		},
	})
}

// Download returns a presigned URL that downloads with the original filename
func (h *FileHandler) Download(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	fileID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.ledger.Get(user.ID, fileID)
	if err != nil || !file.Active() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}

	url, err := h.store.PresignDownload(c.Context(), file.FileKey, file.Filename, presignTTL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate download URL",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"download_url": url,
			"expires_in":   int(presignTTL.Seconds()),
		},
	})
}

// Rename changes a file's name. The object is copied to its new key before
// the ledger row changes, and the old key is only deleted afterwards, so a
// live row always points at stored bytes.
func (h *FileHandler) Rename(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	fileID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.BodyParser(&req); err != nil || req.NewName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "new_name is required",
		})
	}

	file, err := h.ledger.Get(user.ID, fileID)
	if err != nil || !file.Active() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}
	if req.NewName == file.Filename {
		return c.JSON(fiber.Map{"success": true, "message": "File renamed"})
	}

	oldKey := file.FileKey
	newKey := objectKey(user.ID, file.FolderID, req.NewName)

	if err := h.store.Copy(c.Context(), oldKey, newKey); err != nil {
		log.Printf("Object store copy failed for rename of %s: %v", oldKey, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to rename file in storage",
		})
	}

	if err := h.ledger.Rename(user.ID, file.ID, req.NewName, newKey); err != nil {
		// The copied object is now unreferenced; try to take it back out
		if delErr := h.store.Delete(c.Context(), newKey); delErr != nil {
			log.Printf("ALERT: orphaned object %s after failed rename: %v", newKey, delErr)
		}
		if errors.Is(err, ledger.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "A file with this name already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to rename file",
		})
	}

	// Old key is retired; its loss is recoverable garbage, not corruption
	if err := h.store.Delete(c.Context(), oldKey); err != nil {
		log.Printf("Failed to delete old key %s after rename: %v", oldKey, err)
	}

	database.InvalidateUsageCache(user.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File renamed",
	})
}

// Delete closes the holding and then removes the bytes. Ledger closure is
// what stops the meter; a failed object-store delete is logged as an
// operational alert but never reopens the holding.
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	fileID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.ledger.Close(user.ID, fileID, time.Now())
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "File not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete file",
		})
	}

	if err := h.store.Delete(c.Context(), file.FileKey); err != nil {
		log.Printf("ALERT: object store delete failed for %s, bytes may be orphaned: %v", file.FileKey, err)
	}

	database.InvalidateUsageCache(user.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
	})
}
