package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/middleware"
	"github.com/baketsu/backend/internal/models"
)

type FolderHandler struct{}

func NewFolderHandler() *FolderHandler {
	return &FolderHandler{}
}

// Create makes a new folder, optionally under a parent
func (h *FolderHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		Name     string `json:"name"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Folder name is required",
		})
	}

	// Parent must exist and belong to the caller
	if req.ParentID != nil {
		var parent models.Folder
		if err := database.DB.Where("id = ? AND user_id = ?", *req.ParentID, user.ID).First(&parent).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Parent folder does not exist",
			})
		}
	}

	// Check duplicate under the same parent
	q := database.DB.Model(&models.Folder{}).Where("user_id = ? AND name = ?", user.ID, req.Name)
	if req.ParentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *req.ParentID)
	}
	var count int64
	q.Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Folder already exists under this parent",
		})
	}

	folder := models.Folder{
		Name:     req.Name,
		UserID:   user.ID,
		ParentID: req.ParentID,
	}
	if err := database.DB.Create(&folder).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create folder",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// List returns all folders for the user
func (h *FolderHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var folders []models.Folder
	if err := database.DB.Where("user_id = ?", user.ID).Order("name ASC").Find(&folders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list folders",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folders,
	})
}

// Move re-parents a folder. The new parent's ancestor chain is walked
// first: a folder may never become its own ancestor.
func (h *FolderHandler) Move(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	folderID, err := parseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid folder id",
		})
	}

	var req struct {
		ParentID *uint `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var folder models.Folder
	if err := database.DB.Where("id = ? AND user_id = ?", folderID, user.ID).First(&folder).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Folder not found",
		})
	}

	if req.ParentID != nil {
		if *req.ParentID == folder.ID {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "A folder cannot be its own parent",
			})
		}

		var parent models.Folder
		if err := database.DB.Where("id = ? AND user_id = ?", *req.ParentID, user.ID).First(&parent).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Parent folder does not exist",
			})
		}

		cyclic, err := wouldCreateCycle(user.ID, folder.ID, *req.ParentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to validate folder tree",
			})
		}
		if cyclic {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Cannot move a folder into its own subtree",
			})
		}
	}

	if err := database.DB.Model(&folder).Update("parent_id", req.ParentID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to move folder",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Folder moved",
	})
}

// wouldCreateCycle walks up from newParentID; if folderID appears among the
// ancestors the move would close a loop.
func wouldCreateCycle(userID, folderID, newParentID uint) (bool, error) {
	current := newParentID
	// Bounded walk: a legitimate tree is never deeper than this
	for depth := 0; depth < 256; depth++ {
		if current == folderID {
			return true, nil
		}
		var node models.Folder
		if err := database.DB.Where("id = ? AND user_id = ?", current, userID).First(&node).Error; err != nil {
			return false, err
		}
		if node.ParentID == nil {
			return false, nil
		}
		current = *node.ParentID
	}
	return true, nil
}
