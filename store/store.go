// Package store holds the gorm-backed identity store, the team and channel
// lifecycle managers and the membership ledger. Storage unique indexes are
// the final arbiter of every uniqueness rule; the pre-checks done here only
// produce friendlier errors for the common case.
package store

import (
	"context"

	"gorm.io/gorm"
	"teamhub/models"
)

type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	IsStaff     bool
	IsSuperuser bool
}

type UserStore interface {
	CreateUser(ctx context.Context, nu NewUser) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, search string) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User, patch models.UserPatch) (*models.User, error)
	TouchLastLogin(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, user *models.User) error
}

type NewTeam struct {
	Name        string
	Description string
}

// TeamFilter narrows team listings. Zero values are ignored.
type TeamFilter struct {
	Name     string
	OwnerID  uint
	MemberID uint
	Q        string
}

type TeamStore interface {
	CreateTeam(ctx context.Context, nt NewTeam, owner *models.User) (*models.Team, error)
	GetTeam(ctx context.Context, id uint) (*models.Team, error)
	ListTeams(ctx context.Context, filter TeamFilter) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team, patch models.TeamPatch) (*models.Team, error)
	DeleteTeam(ctx context.Context, team *models.Team) error
}

type NewChannel struct {
	TeamID      uint
	Name        string
	Description string
	IsPrivate   bool
}

type ChannelStore interface {
	CreateChannel(ctx context.Context, nc NewChannel) (*models.Channel, error)
	GetChannel(ctx context.Context, id uint) (*models.Channel, error)
	ListTeamChannels(ctx context.Context, teamID uint) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, channel *models.Channel, patch models.ChannelPatch) (*models.Channel, error)
	DeleteChannel(ctx context.Context, channel *models.Channel) error
}

type MembershipFilter struct {
	Role models.TeamRole
}

type MembershipStore interface {
	AddTeamMember(ctx context.Context, team *models.Team, user *models.User, role models.TeamRole) (*models.TeamMembership, error)
	GetTeamMembership(ctx context.Context, teamID, userID uint) (*models.TeamMembership, error)
	UpdateTeamMemberRole(ctx context.Context, membership *models.TeamMembership, role models.TeamRole) (*models.TeamMembership, error)
	RemoveTeamMember(ctx context.Context, team *models.Team, userID uint) error
	ListTeamMembers(ctx context.Context, teamID uint, filter MembershipFilter) ([]models.TeamMembership, error)

	AddChannelMember(ctx context.Context, channel *models.Channel, user *models.User) (*models.ChannelMembership, error)
	RemoveChannelMember(ctx context.Context, channel *models.Channel, userID uint) error
	ListChannelMembers(ctx context.Context, channel *models.Channel) ([]models.ChannelMembership, error)
	ListVisibleChannels(ctx context.Context, teamID, userID uint) ([]models.Channel, error)

	TeamRole(ctx context.Context, teamID, userID uint) (models.TeamRole, bool, error)
	IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error)
	IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error)
}

// Stores bundles every store over one database handle.
type Stores struct {
	Users       UserStore
	Teams       TeamStore
	Channels    ChannelStore
	Memberships MembershipStore
}

func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:       NewGormUserStore(db),
		Teams:       NewGormTeamStore(db),
		Channels:    NewGormChannelStore(db),
		Memberships: NewGormMembershipStore(db),
	}
}
