package models

import "time"

// UserFile is the storage ledger record for one stored file: who owns it,
// where the bytes live, and the interval the bytes existed. A live file has
// DeletedAt = NULL; deleting a file closes the record rather than removing
// it, so billing can still charge for the days the bytes were stored.
//
// Among live rows, (user_id, folder_id, filename) is unique. The backing
// index is created in AutoMigrate as an expression index over
// COALESCE(folder_id, 0): folder_id is nullable and unique indexes treat
// NULLs as distinct, so root-level names need the NULL folded to a sentinel
// for the index to serialize concurrent uploads of the same name.
type UserFile struct {
	ID     uint `gorm:"column:id;primaryKey" json:"id"`
	UserID uint `gorm:"column:user_id;not null;index" json:"user_id"`

	FolderID *uint `gorm:"column:folder_id;index" json:"folder_id"`

	Filename string `gorm:"column:filename;size:255;not null" json:"filename"`
	FileKey  string `gorm:"column:file_key;size:512;not null;index" json:"file_key"` // S3 object key
	FileSize int64  `gorm:"column:file_size;not null" json:"file_size"`              // bytes

	UploadedAt time.Time  `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
	DeletedAt  *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (UserFile) TableName() string {
	return "user_files"
}

// Active reports whether the file still exists in the object store
func (f *UserFile) Active() bool {
	return f.DeletedAt == nil
}
