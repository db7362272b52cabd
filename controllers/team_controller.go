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

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type AddTeamMemberRequest struct {
	User uint   `json:"user" validate:"required"`
	Role string `json:"role" validate:"omitempty,oneof=admin member"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

type TeamController struct {
	Stores *store.Stores
	Policy *policy.Engine
	Logger *logrus.Entry
}

func NewTeamController(stores *store.Stores, engine *policy.Engine, logger *logrus.Entry) *TeamController {
	return &TeamController{Stores: stores, Policy: engine, Logger: logger}
}

func teamViews(teams []models.Team) []models.TeamView {
	views := make([]models.TeamView, 0, len(teams))
	for i := range teams {
		views = append(views, teams[i].Presentation())
	}
	return views
}

// loadTeam fetches the :id team.
func (tc *TeamController) loadTeam(c *fiber.Ctx) (*models.Team, error) {
	id, err := pathID(c, "id", "Team not found")
	if err != nil {
		return nil, err
	}
	return tc.Stores.Teams.GetTeam(c.UserContext(), id)
}

func (tc *TeamController) ListTeams(c *fiber.Ctx) error {
	filter := store.TeamFilter{
		Name: c.Query("name"),
		Q:    c.Query("q"),
	}
	for param, dst := range map[string]*uint{"owner": &filter.OwnerID, "members": &filter.MemberID} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, ok := utils.ParseID(raw)
		if !ok {
			return utils.ErrorResponse(c, apperr.FieldError(param, "Select a valid choice."))
		}
		*dst = id
	}

	teams, err := tc.Stores.Teams.ListTeams(c.UserContext(), filter)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.ListResponse(c, "Teams retrieved", teamViews(teams), len(teams))
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apperr.FieldError("body", "Invalid request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	owner := middleware.CurrentUser(c)
	team, err := tc.Stores.Teams.CreateTeam(c.UserContext(), store.NewTeam{
		Name:        req.Name,
		Description: req.Description,
	}, owner)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	tc.Logger.WithFields(logrus.Fields{"team_id": team.ID, "owner_id": owner.ID}).Info("team created")
	return utils.SuccessResponse(c, fiber.StatusCreated, "Team created successfully", team.Presentation())
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionRead, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Team retrieved", team.Presentation())
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionUpdate, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apperr.FieldError("body", "Invalid request body"))
	}
	utils.TrimPtr(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	updated, err := tc.Stores.Teams.UpdateTeam(c.UserContext(), team, models.TeamPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Team updated successfully", updated.Presentation())
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionDelete, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := tc.Stores.Teams.DeleteTeam(c.UserContext(), team); err != nil {
		return utils.ErrorResponse(c, err)
	}

	tc.Logger.WithField("team_id", team.ID).Info("team deleted")
	return utils.MessageResponse(c, fiber.StatusOK, "Team deleted successfully")
}

func (tc *TeamController) ListMembers(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionListMembers, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	filter := store.MembershipFilter{Role: models.TeamRole(c.Query("role"))}
	if filter.Role != "" && !filter.Role.Valid() {
		return utils.ErrorResponse(c, apperr.FieldError("role", "Select a valid choice."))
	}
	memberships, err := tc.Stores.Memberships.ListTeamMembers(c.UserContext(), team.ID, filter)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	views := make([]models.TeamMembershipView, 0, len(memberships))
	for i := range memberships {
		views = append(views, memberships[i].Presentation())
	}
	return utils.ListResponse(c, "Team members retrieved", views, len(views))
}

func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionAddMember, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req AddTeamMemberRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}
	user, err := tc.Stores.Users.GetUser(c.UserContext(), req.User)
	if apperr.Is(err, apperr.KindNotFound) {
		return utils.ErrorResponse(c, apperr.FieldError("user", "Invalid pk - object does not exist."))
	}
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	membership, err := tc.Stores.Memberships.AddTeamMember(c.UserContext(), team, user, models.TeamRole(req.Role))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "Member added successfully", membership.Presentation())
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionRemoveMember, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	userID, err := userIDParam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := tc.Stores.Memberships.RemoveTeamMember(c.UserContext(), team, userID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.MessageResponse(c, fiber.StatusOK, "Member removed successfully")
}

func (tc *TeamController) UpdateMemberRole(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if err := authorize(c, tc.Policy, policy.ActionUpdateRole, policy.TeamResource(team)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	userID, err := pathID(c, "userID", "User is not a member of this team.")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	var req UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	membership, err := tc.Stores.Memberships.GetTeamMembership(c.UserContext(), team.ID, userID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	membership, err = tc.Stores.Memberships.UpdateTeamMemberRole(c.UserContext(), membership, models.TeamRole(req.Role))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Member role updated", membership.Presentation())
}
