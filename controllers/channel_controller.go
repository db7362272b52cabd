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

type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Team        uint   `json:"team" validate:"required"`
	IsPrivate   bool   `json:"is_private"`
}

type UpdateChannelRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsPrivate   *bool   `json:"is_private"`
}

type AddChannelMemberRequest struct {
	User uint `json:"user" validate:"required"`
}

type ChannelController struct {
	Stores *store.Stores
	Policy *policy.Engine
	Logger *logrus.Entry
}

func NewChannelController(stores *store.Stores, engine *policy.Engine, logger *logrus.Entry) *ChannelController {
	return &ChannelController{Stores: stores, Policy: engine, Logger: logger}
}

func (cc *ChannelController) loadChannel(c *fiber.Ctx) (*models.Channel, error) {
	id, err := pathID(c, "id", "Channel not found")
	if err != nil {
		return nil, err
	}
	return cc.Stores.Channels.GetChannel(c.UserContext(), id)
}

// ListChannels lists the channels of ?team_id visible to the caller. Staff
// see every channel of the team.
func (cc *ChannelController) ListChannels(c *fiber.Ctx) error {
	raw := c.Query("team_id")
	if raw == "" {
		return utils.ErrorResponse(c, apperr.FieldError("team_id", "This query parameter is required."))
	}
	teamID, ok := utils.ParseID(raw)
	if !ok {
		return utils.ErrorResponse(c, apperr.FieldError("team_id", "A valid integer is required."))
	}

	team, err := cc.Stores.Teams.GetTeam(c.UserContext(), teamID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionList, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var channels []models.Channel
	user := middleware.CurrentUser(c)
	if user.IsPrivileged() {
		channels, err = cc.Stores.Channels.ListTeamChannels(c.UserContext(), team.ID)
	} else {
		channels, err = cc.Stores.Memberships.ListVisibleChannels(c.UserContext(), team.ID, user.ID)
	}
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	views := make([]models.ChannelView, 0, len(channels))
	for i := range channels {
		views = append(views, channels[i].Presentation())
	}
	return utils.ListResponse(c, "Channels retrieved", views, len(views))
}

func (cc *ChannelController) CreateChannel(c *fiber.Ctx) error {
	var req CreateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apperr.FieldError("body", "Invalid request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	draft := &models.Channel{TeamID: req.Team, IsPrivate: req.IsPrivate}
	if err := authorize(c, cc.Policy, policy.ActionCreate, policy.ChannelResource(draft)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	channel, err := cc.Stores.Channels.CreateChannel(c.UserContext(), store.NewChannel{
		TeamID:      req.Team,
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"channel_id": channel.ID,
		"team_id":    channel.TeamID,
		"private":    channel.IsPrivate,
	}).Info("channel created")
	return utils.SuccessResponse(c, fiber.StatusCreated, "Channel created successfully", channel.Presentation())
}

func (cc *ChannelController) GetChannel(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionRead, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Channel retrieved", channel.Presentation())
}

func (cc *ChannelController) UpdateChannel(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionUpdate, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req UpdateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apperr.FieldError("body", "Invalid request body"))
	}
	utils.TrimPtr(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	updated, err := cc.Stores.Channels.UpdateChannel(c.UserContext(), channel, models.ChannelPatch{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Channel updated successfully", updated.Presentation())
}

func (cc *ChannelController) DeleteChannel(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionDelete, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := cc.Stores.Channels.DeleteChannel(c.UserContext(), channel); err != nil {
		return utils.ErrorResponse(c, err)
	}

	cc.Logger.WithField("channel_id", channel.ID).Info("channel deleted")
	return utils.MessageResponse(c, fiber.StatusOK, "Channel deleted successfully")
}

func (cc *ChannelController) ListMembers(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionListMembers, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	memberships, err := cc.Stores.Memberships.ListChannelMembers(c.UserContext(), channel)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	views := make([]models.ChannelMembershipView, 0, len(memberships))
	for i := range memberships {
		views = append(views, memberships[i].Presentation())
	}
	return utils.ListResponse(c, "Channel members retrieved", views, len(views))
}

// AddMember enrolls a team member into a private channel.
func (cc *ChannelController) AddMember(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionAddMember, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req AddChannelMemberRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}
	user, err := cc.Stores.Users.GetUser(c.UserContext(), req.User)
	if apperr.Is(err, apperr.KindNotFound) {
		return utils.ErrorResponse(c, apperr.FieldError("user", "Invalid pk - object does not exist."))
	}
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionAddMember, policy.ChannelMemberResource(channel, user.ID)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	membership, err := cc.Stores.Memberships.AddChannelMember(c.UserContext(), channel, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "Member added successfully", membership.Presentation())
}

func (cc *ChannelController) RemoveMember(c *fiber.Ctx) error {
	channel, err := cc.loadChannel(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, cc.Policy, policy.ActionRemoveMember, policy.ChannelResource(channel)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	userID, err := userIDParam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := cc.Stores.Memberships.RemoveChannelMember(c.UserContext(), channel, userID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.MessageResponse(c, fiber.StatusOK, "Member removed successfully")
}
