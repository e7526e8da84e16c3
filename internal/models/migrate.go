package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for all application tables
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&User{},
		&Folder{},
		&UserFile{},
		&Invoice{},
	); err != nil {
		return err
	}

	// Unique among live rows only. folder_id is nullable and unique
	// indexes treat NULLs as distinct, so root-level files fold the NULL
	// to 0; without that, two concurrent uploads of the same root name
	// could both commit.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_user_files_active_name
		ON user_files (user_id, COALESCE(folder_id, 0), filename)
		WHERE deleted_at IS NULL`).Error
}
