package store

import (
	"context"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"
	"teamhub/apperr"
	"teamhub/models"
	"teamhub/utils"
)

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

var errEmailTaken = apperr.FieldError("email", "user with this email already exists.")

// CreateUser hashes the password and stores a new active account.
func (s *GormUserStore) CreateUser(ctx context.Context, nu NewUser) (*models.User, error) {
	email := models.NormalizeEmail(nu.Email)
	if email == "" {
		return nil, apperr.FieldError("email", "The Email must be set")
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, apperr.FieldError("email", "Enter a valid email address.")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err, "could not check email")
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	hash, err := utils.HashPassword(nu.Password)
	if err != nil {
		return nil, apperr.Internal(err, "could not hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(nu.FirstName),
		LastName:     strings.TrimSpace(nu.LastName),
		IsActive:     true,
		IsStaff:      nu.IsStaff || nu.IsSuperuser,
		IsSuperuser:  nu.IsSuperuser,
		TokenVersion: 1,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, writeError(err, errEmailTaken, "could not create user")
	}
	return user, nil
}

// Authenticate returns the active user matching the credentials.
func (s *GormUserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials or inactive account")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("Invalid credentials or inactive account")
	}
	return user, nil
}

func (s *GormUserStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, readError(err, "User not found", "could not load user")
	}
	return &user, nil
}

func (s *GormUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, readError(err, "User not found", "could not load user")
	}
	return &user, nil
}

// ListUsers returns users ordered by id, optionally filtered by a search over
// email, first name and last name.
func (s *GormUserStore) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if strings.TrimSpace(search) != "" {
		p := likePattern(search)
		q = q.Where(
			`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`,
			p, p, p,
		)
	}
	var users []models.User
	if err := q.Order("id").Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "could not list users")
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields of patch.
func (s *GormUserStore) UpdateProfile(ctx context.Context, user *models.User, patch models.UserPatch) (*models.User, error) {
	updates := map[string]interface{}{}
	if patch.Email != nil {
		email := models.NormalizeEmail(*patch.Email)
		if err := checkmail.ValidateFormat(email); err != nil {
			return nil, apperr.FieldError("email", "Enter a valid email address.")
		}
		if email != user.Email {
			var count int64
			err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error
			if err != nil {
				return nil, apperr.Internal(err, "could not check email")
			}
			if count > 0 {
				return nil, errEmailTaken
			}
		}
		updates["email"] = email
	}
	if patch.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*patch.LastName)
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.IsStaff != nil {
		updates["is_staff"] = *patch.IsStaff
	}
	if patch.IsSuperuser != nil {
		updates["is_superuser"] = *patch.IsSuperuser
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, writeError(err, errEmailTaken, "could not update user")
	}
	return s.GetUser(ctx, user.ID)
}

func (s *GormUserStore) TouchLastLogin(ctx context.Context, user *models.User) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		return apperr.Internal(err, "could not record login")
	}
	user.LastLogin = &now
	return nil
}

// DeleteUser soft-deletes the account and deactivates it.
func (s *GormUserStore) DeleteUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"deleted_at": now, "is_active": false}).Error
	if err != nil {
		return apperr.Internal(err, "could not delete user")
	}
	user.DeletedAt = &now
	user.IsActive = false
	return nil
}
