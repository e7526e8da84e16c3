package ledger

import (
	"errors"
	"time"

	"github.com/baketsu/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the file does not exist, is already deleted, or
	// belongs to a different user (not distinguished to the caller).
	ErrNotFound = errors.New("file not found")

	// ErrConflict means another live file already uses the same name in
	// the same folder.
	ErrConflict = errors.New("a file with this name already exists")

	// ErrValidation means the input itself is unusable
	ErrValidation = errors.New("invalid file parameters")
)

// Ledger is the authoritative record of storage time. Every mutation runs in
// one transaction; the partial unique index on (user_id, folder_id,
// filename) among live rows backstops the in-transaction duplicate check
// under concurrency.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Open records a new holding. The row is committed before the caller writes
// the bytes to the object store; if that write fails the caller must undo
// the row with Rollback so no record ever points at bytes that were never
// stored.
func (l *Ledger) Open(userID uint, folderID *uint, filename, fileKey string, sizeBytes int64, at time.Time) (*models.UserFile, error) {
	if filename == "" || sizeBytes < 0 {
		return nil, ErrValidation
	}

	file := models.UserFile{
		UserID:     userID,
		FolderID:   folderID,
		Filename:   filename,
		FileKey:    fileKey,
		FileSize:   sizeBytes,
		UploadedAt: at.UTC(),
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := activeNameQuery(tx, userID, folderID, filename).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
		return tx.Create(&file).Error
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return &file, nil
}

// Rollback hard-deletes a holding record. Only used to compensate a failed
// object-store write right after Open; a rolled-back holding was never
// chargeable.
func (l *Ledger) Rollback(fileID uint) error {
	return l.db.Unscoped().Delete(&models.UserFile{}, fileID).Error
}

// Close ends a holding: the row moves from the live set to the historical
// set by getting its deleted_at stamped. The object-store delete is the
// caller's follow-up and does not run inside this transaction.
func (l *Ledger) Close(userID, fileID uint, at time.Time) (*models.UserFile, error) {
	var file models.UserFile

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ? AND deleted_at IS NULL", fileID, userID).
			First(&file).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		ts := at.UTC()
		if ts.Before(file.UploadedAt) {
			ts = file.UploadedAt
		}
		file.DeletedAt = &ts
		return tx.Model(&models.UserFile{}).Where("id = ?", file.ID).
			Update("deleted_at", ts).Error
	})
	if err != nil {
		return nil, err
	}

	return &file, nil
}

// Rename updates a live holding's name and object key. The caller must have
// already copied the object to the new key; the store is never left without
// the bytes a live row points at.
func (l *Ledger) Rename(userID, fileID uint, newName, newKey string) error {
	if newName == "" || newKey == "" {
		return ErrValidation
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var file models.UserFile
		if err := tx.Where("id = ? AND user_id = ? AND deleted_at IS NULL", fileID, userID).
			First(&file).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var count int64
		q := activeNameQuery(tx, userID, file.FolderID, newName).Where("id <> ?", file.ID)
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}

		return tx.Model(&models.UserFile{}).Where("id = ?", file.ID).
			Updates(map[string]interface{}{"filename": newName, "file_key": newKey}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// Get returns one holding, live or historical, owned by the user
func (l *Ledger) Get(userID, fileID uint) (*models.UserFile, error) {
	var file models.UserFile
	if err := l.db.Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// ListActive returns all live holdings for a user, newest first
func (l *Ledger) ListActive(userID uint) ([]models.UserFile, error) {
	var files []models.UserFile
	err := l.db.Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("uploaded_at DESC").Find(&files).Error
	return files, err
}

// ListActiveInFolder returns live holdings in one folder (nil = root)
func (l *Ledger) ListActiveInFolder(userID uint, folderID *uint) ([]models.UserFile, error) {
	var files []models.UserFile
	q := l.db.Where("user_id = ? AND deleted_at IS NULL", userID)
	if folderID == nil {
		q = q.Where("folder_id IS NULL")
	} else {
		q = q.Where("folder_id = ?", *folderID)
	}
	err := q.Order("uploaded_at DESC").Find(&files).Error
	return files, err
}

// ListDeletedSince returns historical holdings closed at or after t.
// The usage view feeds it the start of the current month.
func (l *Ledger) ListDeletedSince(userID uint, t time.Time) ([]models.UserFile, error) {
	var files []models.UserFile
	err := l.db.Where("user_id = ? AND deleted_at IS NOT NULL AND deleted_at >= ?", userID, t.UTC()).
		Order("deleted_at DESC").Find(&files).Error
	return files, err
}

// ListOverlapping returns every holding, live or historical, whose lifetime
// can overlap [start, end): uploaded before the interval ends and not
// deleted before it starts. Invoice generation reads the ledger through
// this one query.
func (l *Ledger) ListOverlapping(userID uint, start, end time.Time) ([]models.UserFile, error) {
	var files []models.UserFile
	err := l.db.Where("user_id = ? AND uploaded_at < ? AND (deleted_at IS NULL OR deleted_at >= ?)",
		userID, end.UTC(), start.UTC()).
		Order("uploaded_at ASC").Find(&files).Error
	return files, err
}

// ActiveTotals returns the live file count and total bytes for a user
func (l *Ledger) ActiveTotals(userID uint) (count int64, bytes int64, err error) {
	if err = l.db.Model(&models.UserFile{}).
		Where("user_id = ? AND deleted_at IS NULL", userID).Count(&count).Error; err != nil {
		return 0, 0, err
	}
	var sum *int64
	err = l.db.Model(&models.UserFile{}).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Select("SUM(file_size)").Scan(&sum).Error
	if err != nil {
		return 0, 0, err
	}
	if sum != nil {
		bytes = *sum
	}
	return count, bytes, nil
}

func activeNameQuery(tx *gorm.DB, userID uint, folderID *uint, filename string) *gorm.DB {
	q := tx.Model(&models.UserFile{}).
		Where("user_id = ? AND filename = ? AND deleted_at IS NULL", userID, filename)
	if folderID == nil {
		return q.Where("folder_id IS NULL")
	}
	return q.Where("folder_id = ?", *folderID)
}
