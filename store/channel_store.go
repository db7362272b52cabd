package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"teamhub/apperr"
	"teamhub/models"
)

type GormChannelStore struct {
	db *gorm.DB
}

func NewGormChannelStore(db *gorm.DB) *GormChannelStore {
	return &GormChannelStore{db: db}
}

func errChannelNameTaken() *apperr.Error {
	return apperr.DuplicateName("A channel with this name already exists in the team.")
}

func preloadChannel(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.Preload("Team").
		Preload("Team.Memberships", byID).
		Preload("Team.Memberships.User").
		Preload("Memberships", byID).
		Preload("Memberships.User")
}

func (s *GormChannelStore) nameTaken(ctx context.Context, teamID uint, name string, excludeID uint) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("team_id = ? AND name_key = ?", teamID, models.NameKey(name))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal(err, "could not check channel name")
	}
	return count > 0, nil
}

// CreateChannel stores a channel in an existing team. Creator membership in
// the team is not checked here.
func (s *GormChannelStore) CreateChannel(ctx context.Context, nc NewChannel) (*models.Channel, error) {
	name := strings.TrimSpace(nc.Name)
	if name == "" {
		return nil, apperr.FieldError("name", "This field may not be blank.")
	}

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, nc.TeamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FieldError("team", "Invalid pk - object does not exist.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "could not load team")
	}

	taken, err := s.nameTaken(ctx, nc.TeamID, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errChannelNameTaken()
	}

	channel := &models.Channel{
		Name:        name,
		Description: nc.Description,
		TeamID:      nc.TeamID,
		IsPrivate:   nc.IsPrivate,
	}
	if err := s.db.WithContext(ctx).Omit("Team", "Memberships").Create(channel).Error; err != nil {
		return nil, writeError(err, errChannelNameTaken(), "could not create channel")
	}
	channel.Team = &team
	return channel, nil
}

func (s *GormChannelStore) GetChannel(ctx context.Context, id uint) (*models.Channel, error) {
	var channel models.Channel
	if err := preloadChannel(s.db.WithContext(ctx)).First(&channel, id).Error; err != nil {
		return nil, readError(err, "Channel not found", "could not load channel")
	}
	return &channel, nil
}

// ListTeamChannels returns every channel of a team regardless of visibility.
func (s *GormChannelStore) ListTeamChannels(ctx context.Context, teamID uint) ([]models.Channel, error) {
	var channels []models.Channel
	err := preloadChannel(s.db.WithContext(ctx)).
		Where("team_id = ?", teamID).
		Order("name").Order("id").
		Find(&channels).Error
	if err != nil {
		return nil, apperr.Internal(err, "could not list channels")
	}
	return channels, nil
}

// UpdateChannel applies the present fields of patch. Flipping IsPrivate
// leaves existing channel memberships in place.
func (s *GormChannelStore) UpdateChannel(ctx context.Context, channel *models.Channel, patch models.ChannelPatch) (*models.Channel, error) {
	if patch.Empty() {
		return channel, nil
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.FieldError("name", "This field may not be blank.")
		}
		taken, err := s.nameTaken(ctx, channel.TeamID, name, channel.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errChannelNameTaken()
		}
		updates["name"] = name
		updates["name_key"] = models.NameKey(name)
		updates["slug"] = slug.Make(name)
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.IsPrivate != nil {
		updates["is_private"] = *patch.IsPrivate
	}
	updates["updated_at"] = time.Now()
	err := s.db.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", channel.ID).Updates(updates).Error
	if err != nil {
		return nil, writeError(err, errChannelNameTaken(), "could not update channel")
	}
	return s.GetChannel(ctx, channel.ID)
}

// DeleteChannel marks the channel deleted without removing it.
func (s *GormChannelStore) DeleteChannel(ctx context.Context, channel *models.Channel) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", channel.ID).Update("deleted_at", now).Error
	if err != nil {
		return apperr.Internal(err, "could not delete channel")
	}
	channel.DeletedAt = &now
	return nil
}
