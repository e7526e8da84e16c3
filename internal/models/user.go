package models

import "time"

// User represents an account that owns files, folders and invoices
type User struct {
	ID       uint   `gorm:"column:id;primaryKey" json:"id"`
	Email    string `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"column:password;size:255;not null" json:"-"`
	Name     string `gorm:"column:name;size:100" json:"name"`

	// Email verification
	IsVerified        bool    `gorm:"column:is_verified;default:false" json:"is_verified"`
	VerificationToken *string `gorm:"column:verification_token;size:64;index" json:"-"`

	// Optional TOTP 2FA
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:64" json:"-"`

	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	LastLogin *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
}

func (User) TableName() string {
	return "users"
}
