package models

import "time"

// RefreshToken records an issued refresh token so it can be revoked on logout.
type RefreshToken struct {
	Base
	JTI       string    `gorm:"uniqueIndex;not null;size:64" json:"jti"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	IsRevoked bool      `gorm:"not null;default:false" json:"is_revoked"`
	UserAgent string    `json:"user_agent"`
	IP        string    `gorm:"size:64" json:"ip"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
