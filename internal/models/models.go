package models

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/session"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the single-tenant deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first setup (64 hex chars)
}

// AccountStatus gates whether an account may attempt to log in
type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusLocked AccountStatus = "locked" // Temporary, cleared by the lock sweeper
	StatusBanned AccountStatus = "banned"
)

// User represents a local user account
type User struct {
	BaseModel
	Email          string        `json:"email" gorm:"unique;not null"`
	PasswordHash   string        `json:"-" gorm:"not null"`
	Name           string        `json:"name"`
	Role           session.Role  `json:"role" gorm:"type:varchar(32);not null;default:STANDARD"`
	Status         AccountStatus `json:"status" gorm:"type:varchar(16);not null;default:active"`
	FailedAttempts int           `json:"failed_attempts" gorm:"not null;default:0"`
	LockedUntil    *time.Time    `json:"locked_until"`
	LastLoginAt    *time.Time    `json:"last_login_at"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeSave keeps emails in a canonical form so lookups are case-insensitive
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// IsLocked reports whether the account is inside an active lock window
func (u *User) IsLocked(now time.Time) bool {
	return u.Status == StatusLocked && u.LockedUntil != nil && u.LockedUntil.After(now)
}

// LoginAttempt is an audit row written for every authentication attempt
type LoginAttempt struct {
	BaseModel
	UserID   string `json:"user_id" gorm:"index"`
	Email    string `json:"email" gorm:"index;not null"`
	Success  bool   `json:"success" gorm:"not null"`
	ClientIP string `json:"client_ip"`
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Config{}, &LoginAttempt{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindUserByEmail looks up a user by normalized email
func FindUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
