package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"teamhub/apperr"
	"teamhub/middleware"
	"teamhub/models"
	"teamhub/policy"
	"teamhub/store"
	"teamhub/utils"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=255"`
	LastName  string `json:"last_name" validate:"required,max=255"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateMeRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=255"`
	LastName    *string `json:"last_name" validate:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

type LoginResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *models.User `json:"user"`
}

type AuthController struct {
	Users  store.UserStore
	Tokens *utils.TokenIssuer
	Policy *policy.Engine
	Logger *logrus.Entry
}

func NewAuthController(users store.UserStore, tokens *utils.TokenIssuer, engine *policy.Engine, logger *logrus.Entry) *AuthController {
	return &AuthController{Users: users, Tokens: tokens, Policy: engine, Logger: logger}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apperr.FieldError("body", "Invalid request body"))
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	user, err := ac.Users.CreateUser(c.UserContext(), store.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ac.Logger.WithField("user_id", user.ID).Info("user registered")
	return utils.SuccessResponse(c, fiber.StatusCreated, "User registered successfully", user)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	user, err := ac.Users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := ac.Users.TouchLastLogin(c.UserContext(), user); err != nil {
		return utils.ErrorResponse(c, err)
	}

	pair, err := ac.Tokens.Issue(c.UserContext(), user, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return utils.ErrorResponse(c, apperr.Internal(err, "could not issue tokens"))
	}

	ac.Logger.WithField("user_id", user.ID).Info("user logged in")
	return utils.SuccessResponse(c, fiber.StatusOK, "Login successful", LoginResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    user,
	})
}

func (ac *AuthController) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	access, err := ac.Tokens.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Token refreshed", fiber.Map{"access": access})
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	user := middleware.CurrentUser(c)
	if err := ac.Tokens.Revoke(c.UserContext(), user.ID, req.Refresh); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.MessageResponse(c, fiber.StatusOK, "Successfully logged out")
}

func (ac *AuthController) Me(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, fiber.StatusOK, "Current user", middleware.CurrentUser(c))
}

func (ac *AuthController) UpdateMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := authorize(c, ac.Policy, policy.ActionUpdate, policy.UserResource(user)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req UpdateMeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}
	if (req.IsActive != nil || req.IsStaff != nil || req.IsSuperuser != nil) && !user.IsSuperuser {
		return utils.ErrorResponse(c, apperr.Forbidden("Only superusers may change account flags."))
	}

	updated, err := ac.Users.UpdateProfile(c.UserContext(), user, models.UserPatch{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Profile updated", updated)
}

// DeleteMe deactivates and soft-deletes the caller's account.
func (ac *AuthController) DeleteMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := authorize(c, ac.Policy, policy.ActionDelete, policy.UserResource(user)); err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := ac.Users.DeleteUser(c.UserContext(), user); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ac.Logger.WithField("user_id", user.ID).Info("account deleted")
	return utils.MessageResponse(c, fiber.StatusOK, "Account deleted successfully")
}

// ListUsers is restricted to staff.
func (ac *AuthController) ListUsers(c *fiber.Ctx) error {
	if err := authorize(c, ac.Policy, policy.ActionList, policy.UserResource(nil)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	users, err := ac.Users.ListUsers(c.UserContext(), c.Query("search"))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.ListResponse(c, "Users retrieved", users, len(users))
}
