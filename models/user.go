package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	Base

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null;size:254" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	TokenVersion int    `gorm:"not null;default:1" json:"-"`

	// Profile information
	FirstName string `gorm:"size:255" json:"first_name"`
	LastName  string `gorm:"size:255" json:"last_name"`

	// Account status
	IsActive    bool `gorm:"default:true" json:"is_active"`
	IsStaff     bool `gorm:"default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"default:false" json:"is_superuser"`

	DateJoined time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

// FullName joins first and last name the way listings display it.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsPrivileged is true for staff and superusers.
func (u *User) IsPrivileged() bool {
	return u.IsStaff || u.IsSuperuser
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail trims the address and lower-cases its domain part. The
// local part is kept as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// UserPatch holds the profile fields a caller asked to change. Nil fields are
// left untouched.
type UserPatch struct {
	Email       *string
	FirstName   *string
	LastName    *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// UserInfo is the compact form embedded in team and channel payloads.
type UserInfo struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}
