package store

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"
	"teamhub/apperr"
	"teamhub/models"
	"teamhub/utils"
)

// GormMembershipStore is the membership ledger: it owns every
// TeamMembership and ChannelMembership row.
type GormMembershipStore struct {
	db *gorm.DB
}

func NewGormMembershipStore(db *gorm.DB) *GormMembershipStore {
	return &GormMembershipStore{db: db}
}

func errAlreadyTeamMember() *apperr.Error {
	return apperr.DuplicateMembership("User is already a member of this team.")
}

func errAlreadyChannelMember() *apperr.Error {
	return apperr.DuplicateMembership("User is already a member of this channel.")
}

func (s *GormMembershipStore) exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, apperr.Internal(err, "could not check membership")
	}
	return count > 0, nil
}

// AddTeamMember enrolls user in team with role, defaulting to member.
func (s *GormMembershipStore) AddTeamMember(ctx context.Context, team *models.Team, user *models.User, role models.TeamRole) (*models.TeamMembership, error) {
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, apperr.FieldError("role", `"`+string(role)+`" is not a valid choice.`)
	}

	db := s.db.WithContext(ctx)
	dup, err := s.exists(db, &models.TeamMembership{}, "team_id = ? AND user_id = ?", team.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, errAlreadyTeamMember()
	}

	membership := &models.TeamMembership{TeamID: team.ID, UserID: user.ID, Role: role}
	if err := db.Omit("Team", "User").Create(membership).Error; err != nil {
		return nil, writeError(err, errAlreadyTeamMember(), "could not add team member")
	}
	membership.User = user

	utils.LogEvent("membership_created", map[string]interface{}{
		"kind":    "team",
		"team_id": team.ID,
		"user_id": user.ID,
		"role":    string(role),
	})
	return membership, nil
}

func (s *GormMembershipStore) GetTeamMembership(ctx context.Context, teamID, userID uint) (*models.TeamMembership, error) {
	var membership models.TeamMembership
	err := s.db.WithContext(ctx).Preload("User").
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).Error
	if err != nil {
		return nil, readError(err, "User is not a member of this team.", "could not load membership")
	}
	return &membership, nil
}

// UpdateTeamMemberRole overwrites the role. Setting the current role again is
// a no-op success.
func (s *GormMembershipStore) UpdateTeamMemberRole(ctx context.Context, membership *models.TeamMembership, role models.TeamRole) (*models.TeamMembership, error) {
	if !role.Valid() {
		return nil, apperr.FieldError("role", `"`+string(role)+`" is not a valid choice.`)
	}
	err := s.db.WithContext(ctx).Model(&models.TeamMembership{}).
		Where("id = ?", membership.ID).
		Update("role", role).Error
	if err != nil {
		return nil, apperr.Internal(err, "could not update role")
	}
	membership.Role = role
	return membership, nil
}

// RemoveTeamMember deletes the membership row. Channel memberships the user
// holds in the team are left untouched.
func (s *GormMembershipStore) RemoveTeamMember(ctx context.Context, team *models.Team, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", team.ID, userID).
		Delete(&models.TeamMembership{})
	if res.Error != nil {
		return apperr.Internal(res.Error, "could not remove team member")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User is not a member of this team.")
	}
	return nil
}

func (s *GormMembershipStore) ListTeamMembers(ctx context.Context, teamID uint, filter MembershipFilter) ([]models.TeamMembership, error) {
	q := s.db.WithContext(ctx).Preload("User").Where("team_id = ?", teamID)
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	var memberships []models.TeamMembership
	if err := q.Order("id").Find(&memberships).Error; err != nil {
		return nil, apperr.Internal(err, "could not list team members")
	}
	return memberships, nil
}

// AddChannelMember enrolls user in a private channel. The user must already
// hold a membership in the channel's team.
func (s *GormMembershipStore) AddChannelMember(ctx context.Context, channel *models.Channel, user *models.User) (*models.ChannelMembership, error) {
	if !channel.IsPrivate {
		return nil, errPublicChannel()
	}

	var membership *models.ChannelMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := s.exists(tx, &models.ChannelMembership{}, "channel_id = ? AND user_id = ?", channel.ID, user.ID)
		if err != nil {
			return err
		}
		if dup {
			return errAlreadyChannelMember()
		}

		inTeam, err := s.exists(tx, &models.TeamMembership{}, "team_id = ? AND user_id = ?", channel.TeamID, user.ID)
		if err != nil {
			return err
		}
		if !inTeam {
			return apperr.PrerequisiteNotMet("User must be a member of the team first.")
		}

		membership = &models.ChannelMembership{ChannelID: channel.ID, UserID: user.ID}
		if err := tx.Omit("Channel", "User").Create(membership).Error; err != nil {
			return writeError(err, errAlreadyChannelMember(), "could not add channel member")
		}
		return nil
	})
	if err != nil {
		// a concurrent insert can surface on commit as well
		if isUniqueViolation(err) {
			return nil, errAlreadyChannelMember()
		}
		return nil, err
	}
	membership.User = user

	utils.LogEvent("membership_created", map[string]interface{}{
		"kind":       "channel",
		"channel_id": channel.ID,
		"team_id":    channel.TeamID,
		"user_id":    user.ID,
	})
	return membership, nil
}

func errPublicChannel() *apperr.Error {
	return apperr.InvalidOperation("Members can only be managed for private channels.")
}

func (s *GormMembershipStore) RemoveChannelMember(ctx context.Context, channel *models.Channel, userID uint) error {
	if !channel.IsPrivate {
		return errPublicChannel()
	}
	res := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channel.ID, userID).
		Delete(&models.ChannelMembership{})
	if res.Error != nil {
		return apperr.Internal(res.Error, "could not remove channel member")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User is not a member of this channel.")
	}
	return nil
}

func (s *GormMembershipStore) ListChannelMembers(ctx context.Context, channel *models.Channel) ([]models.ChannelMembership, error) {
	if !channel.IsPrivate {
		return nil, errPublicChannel()
	}
	var memberships []models.ChannelMembership
	err := s.db.WithContext(ctx).Preload("User").
		Where("channel_id = ?", channel.ID).
		Order("id").
		Find(&memberships).Error
	if err != nil {
		return nil, apperr.Internal(err, "could not list channel members")
	}
	return memberships, nil
}

// ListVisibleChannels returns the team's public channels together with the
// private channels userID belongs to, ordered by name.
func (s *GormMembershipStore) ListVisibleChannels(ctx context.Context, teamID, userID uint) ([]models.Channel, error) {
	db := s.db.WithContext(ctx)

	var public []models.Channel
	if err := preloadChannel(db).Where("team_id = ? AND is_private = ?", teamID, false).Find(&public).Error; err != nil {
		return nil, apperr.Internal(err, "could not list public channels")
	}

	memberOf := s.db.Model(&models.ChannelMembership{}).Select("channel_id").Where("user_id = ?", userID)
	var private []models.Channel
	err := preloadChannel(db).
		Where("team_id = ? AND is_private = ? AND id IN (?)", teamID, true, memberOf).
		Find(&private).Error
	if err != nil {
		return nil, apperr.Internal(err, "could not list private channels")
	}

	seen := make(map[uint]struct{}, len(public)+len(private))
	visible := make([]models.Channel, 0, len(public)+len(private))
	for _, set := range [][]models.Channel{public, private} {
		for _, ch := range set {
			if _, ok := seen[ch.ID]; ok {
				continue
			}
			seen[ch.ID] = struct{}{}
			visible = append(visible, ch)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Name != visible[j].Name {
			return visible[i].Name < visible[j].Name
		}
		return visible[i].ID < visible[j].ID
	})
	return visible, nil
}

// TeamRole reports the role userID holds in teamID, if any.
func (s *GormMembershipStore) TeamRole(ctx context.Context, teamID, userID uint) (models.TeamRole, bool, error) {
	var membership models.TeamMembership
	err := s.db.WithContext(ctx).Select("role").
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Internal(err, "could not load membership")
	}
	return membership.Role, true, nil
}

func (s *GormMembershipStore) IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error) {
	return s.exists(s.db.WithContext(ctx), &models.TeamMembership{}, "team_id = ? AND user_id = ?", teamID, userID)
}

func (s *GormMembershipStore) IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error) {
	return s.exists(s.db.WithContext(ctx), &models.ChannelMembership{}, "channel_id = ? AND user_id = ?", channelID, userID)
}
