package store

import (
	"context"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"teamhub/apperr"
	"teamhub/models"
)

type GormTeamStore struct {
	db *gorm.DB
}

func NewGormTeamStore(db *gorm.DB) *GormTeamStore {
	return &GormTeamStore{db: db}
}

func errTeamNameTaken() *apperr.Error {
	return apperr.DuplicateName("A team with this name already exists.")
}

func preloadTeam(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").
		Preload("Memberships", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Memberships.User")
}

func (s *GormTeamStore) nameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Team{}).Where("name_key = ?", models.NameKey(name))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal(err, "could not check team name")
	}
	return count > 0, nil
}

// CreateTeam stores a team owned by owner. The owner is not enrolled as a
// member.
func (s *GormTeamStore) CreateTeam(ctx context.Context, nt NewTeam, owner *models.User) (*models.Team, error) {
	name := strings.TrimSpace(nt.Name)
	if name == "" {
		return nil, apperr.FieldError("name", "This field may not be blank.")
	}

	taken, err := s.nameTaken(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errTeamNameTaken()
	}

	team := &models.Team{
		Name:        name,
		Description: nt.Description,
		OwnerID:     owner.ID,
	}
	if err := s.db.WithContext(ctx).Omit("Owner", "Memberships").Create(team).Error; err != nil {
		return nil, writeError(err, errTeamNameTaken(), "could not create team")
	}
	team.Owner = owner
	return team, nil
}

func (s *GormTeamStore) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := preloadTeam(s.db.WithContext(ctx)).First(&team, id).Error; err != nil {
		return nil, readError(err, "Team not found", "could not load team")
	}
	return &team, nil
}

// ListTeams returns teams ordered by id. Soft-deleted teams are included.
func (s *GormTeamStore) ListTeams(ctx context.Context, filter TeamFilter) ([]models.Team, error) {
	q := preloadTeam(s.db.WithContext(ctx)).Model(&models.Team{})
	if strings.TrimSpace(filter.Name) != "" {
		q = q.Where(`LOWER(teams.name) LIKE ? ESCAPE '\'`, likePattern(filter.Name))
	}
	if filter.OwnerID != 0 {
		q = q.Where("teams.owner_id = ?", filter.OwnerID)
	}
	if filter.MemberID != 0 {
		q = q.Where("teams.id IN (?)",
			s.db.Model(&models.TeamMembership{}).Select("team_id").Where("user_id = ?", filter.MemberID))
	}
	if strings.TrimSpace(filter.Q) != "" {
		p := likePattern(filter.Q)
		owners := s.db.Model(&models.User{}).Select("id").
			Where(`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, p, p)
		q = q.Where(
			`LOWER(teams.name) LIKE ? ESCAPE '\' OR LOWER(teams.description) LIKE ? ESCAPE '\' OR teams.owner_id IN (?)`,
			p, p, owners,
		)
	}

	var teams []models.Team
	if err := q.Order("teams.id").Find(&teams).Error; err != nil {
		return nil, apperr.Internal(err, "could not list teams")
	}
	return teams, nil
}

// UpdateTeam applies the present fields of patch. A new name must stay
// unique across other teams.
func (s *GormTeamStore) UpdateTeam(ctx context.Context, team *models.Team, patch models.TeamPatch) (*models.Team, error) {
	if patch.Empty() {
		return team, nil
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.FieldError("name", "This field may not be blank.")
		}
		taken, err := s.nameTaken(ctx, name, team.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errTeamNameTaken()
		}
		updates["name"] = name
		updates["name_key"] = models.NameKey(name)
		updates["slug"] = slug.Make(name)
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	updates["updated_at"] = time.Now()
	err := s.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", team.ID).Updates(updates).Error
	if err != nil {
		return nil, writeError(err, errTeamNameTaken(), "could not update team")
	}
	return s.GetTeam(ctx, team.ID)
}

// DeleteTeam marks the team deleted without removing it.
func (s *GormTeamStore) DeleteTeam(ctx context.Context, team *models.Team) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", team.ID).Update("deleted_at", now).Error
	if err != nil {
		return apperr.Internal(err, "could not delete team")
	}
	team.DeletedAt = &now
	return nil
}
