package models

import "time"

// Base carries the columns every persisted entity shares. DeletedAt is a
// plain nullable timestamp rather than gorm.DeletedAt, so soft-deleted rows
// are still returned by ordinary queries.
type Base struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the row has been soft-deleted.
func (b Base) IsDeleted() bool {
	return b.DeletedAt != nil
}

// All lists every model owned by the schema, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Team{},
		&TeamMembership{},
		&Channel{},
		&ChannelMembership{},
	}
}
