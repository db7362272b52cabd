package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TeamRole string

const (
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

func (r TeamRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Team is a named group owned by exactly one user.
type Team struct {
	Base
	Name        string `gorm:"size:100;not null" json:"name"`
	NameKey     string `gorm:"size:100;not null;uniqueIndex" json:"-"`
	Slug        string `gorm:"size:120;index" json:"slug"`
	Description string `gorm:"size:500" json:"description"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`

	// Relations
	Owner       *User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Memberships []TeamMembership `gorm:"foreignKey:TeamID" json:"-"`
}

func (t *Team) BeforeSave(tx *gorm.DB) error {
	t.Name = strings.TrimSpace(t.Name)
	t.NameKey = NameKey(t.Name)
	t.Slug = slug.Make(t.Name)
	return nil
}

// TeamMembership grants a user a role inside a team.
type TeamMembership struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	TeamID   uint      `gorm:"not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_team_user;index" json:"user_id"`
	Role     TeamRole  `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relations
	Team *Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// NameKey is the case-folded form used by the uniqueness indexes.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TeamPatch holds the team fields a caller asked to change.
type TeamPatch struct {
	Name        *string
	Description *string
}

func (p TeamPatch) Empty() bool {
	return p.Name == nil && p.Description == nil
}

type TeamView struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	Owner        uint       `json:"owner"`
	OwnerInfo    *UserInfo  `json:"owner_info,omitempty"`
	Members      []UserInfo `json:"members"`
	MembersCount int        `json:"members_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Presentation renders the team with whatever relations were preloaded.
func (t *Team) Presentation() TeamView {
	view := TeamView{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Owner:       t.OwnerID,
		Members:     make([]UserInfo, 0, len(t.Memberships)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DeletedAt:   t.DeletedAt,
	}
	if t.Owner != nil {
		info := t.Owner.Info()
		view.OwnerInfo = &info
	}
	for _, m := range t.Memberships {
		if m.User != nil {
			view.Members = append(view.Members, m.User.Info())
		}
	}
	view.MembersCount = len(t.Memberships)
	return view
}

type TeamMembershipView struct {
	ID       uint      `json:"id"`
	Team     uint      `json:"team"`
	User     uint      `json:"user"`
	UserInfo *UserInfo `json:"user_info,omitempty"`
	Role     TeamRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func (m *TeamMembership) Presentation() TeamMembershipView {
	view := TeamMembershipView{ID: m.ID, Team: m.TeamID, User: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
	if m.User != nil {
		info := m.User.Info()
		view.UserInfo = &info
	}
	return view
}
