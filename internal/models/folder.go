package models

import "time"

// Folder is a node in a user's folder tree. ParentID is nil for root-level
// folders. The tree must stay cycle-free: every re-parent walks the new
// parent's ancestors before committing.
type Folder struct {
	ID       uint   `gorm:"column:id;primaryKey" json:"id"`
	UserID   uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	Name     string `gorm:"column:name;size:255;not null;index" json:"name"`
	ParentID *uint  `gorm:"column:parent_id;index" json:"parent_id"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Folder) TableName() string {
	return "folders"
}
