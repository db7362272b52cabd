package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Channel belongs to a team and is either public to the team or private to
// its explicit members.
type Channel struct {
	Base
	Name        string `gorm:"size:200;not null" json:"name"`
	NameKey     string `gorm:"size:200;not null;uniqueIndex:idx_channel_team_name" json:"-"`
	Slug        string `gorm:"size:220" json:"slug"`
	Description string `gorm:"size:1000" json:"description"`
	TeamID      uint   `gorm:"not null;index;uniqueIndex:idx_channel_team_name" json:"team_id"`
	IsPrivate   bool   `gorm:"not null;default:false;index" json:"is_private"`

	// Relations
	Team        *Team               `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Memberships []ChannelMembership `gorm:"foreignKey:ChannelID" json:"-"`
}

func (c *Channel) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.NameKey = NameKey(c.Name)
	c.Slug = slug.Make(c.Name)
	return nil
}

// ChannelMembership grants a user access to a private channel.
type ChannelMembership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_channel_user" json:"channel_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_channel_user;index" json:"user_id"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relations
	Channel *Channel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ChannelPatch holds the channel fields a caller asked to change.
type ChannelPatch struct {
	Name        *string
	Description *string
	IsPrivate   *bool
}

func (p ChannelPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.IsPrivate == nil
}

type ChannelView struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	Team         uint       `json:"team"`
	TeamName     string     `json:"team_name,omitempty"`
	IsPrivate    bool       `json:"is_private"`
	Members      []UserInfo `json:"members"`
	MembersCount int        `json:"members_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Presentation renders the channel. Private channels list their own members;
// public channels list the members of the owning team, when preloaded.
func (c *Channel) Presentation() ChannelView {
	view := ChannelView{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Team:        c.TeamID,
		IsPrivate:   c.IsPrivate,
		Members:     []UserInfo{},
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		DeletedAt:   c.DeletedAt,
	}
	if c.Team != nil {
		view.TeamName = c.Team.Name
	}
	if c.IsPrivate {
		for _, m := range c.Memberships {
			if m.User != nil {
				view.Members = append(view.Members, m.User.Info())
			}
		}
		view.MembersCount = len(c.Memberships)
		return view
	}
	if c.Team != nil {
		for _, m := range c.Team.Memberships {
			if m.User != nil {
				view.Members = append(view.Members, m.User.Info())
			}
		}
		view.MembersCount = len(c.Team.Memberships)
	}
	return view
}

type ChannelMembershipView struct {
	ID       uint      `json:"id"`
	Channel  uint      `json:"channel"`
	User     uint      `json:"user"`
	UserInfo *UserInfo `json:"user_info,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

func (m *ChannelMembership) Presentation() ChannelMembershipView {
	view := ChannelMembershipView{ID: m.ID, Channel: m.ChannelID, User: m.UserID, JoinedAt: m.JoinedAt}
	if m.User != nil {
		info := m.User.Info()
		view.UserInfo = &info
	}
	return view
}
