// Package policy decides whether a principal may perform an action on a
// team, channel or user. Decisions are pure functions of the principal, the
// resource and the membership ledger; the engine never writes.
//
// Rules are evaluated in this order:
//
//   - Unauthenticated principals may only register, log in or refresh.
//   - Staff and superusers are allowed everything.
//   - Teams are readable by every authenticated principal. Mutating a team
//     or its membership requires the owner or an admin member.
//   - A private channel is visible only to its members. Team managers may
//     still manage it, but a denial for anyone else is reported as hidden so
//     the channel's existence does not leak.
//   - A public channel requires the principal to belong to the team, either
//     as owner or through a team membership.
//   - Channel membership management only applies to private channels, for
//     staff too, and a user may only be added once they hold a team
//     membership.
package policy

import (
	"context"
	"errors"

	"teamhub/models"
)

// Principal is the authenticated caller, or the anonymous caller when
// Authenticated is false.
type Principal struct {
	UserID        uint
	Authenticated bool
	Staff         bool
	Superuser     bool
}

func Anonymous() Principal {
	return Principal{}
}

// PrincipalFor derives the principal for a loaded user. A nil user is
// anonymous.
func PrincipalFor(u *models.User) Principal {
	if u == nil {
		return Anonymous()
	}
	return Principal{
		UserID:        u.ID,
		Authenticated: true,
		Staff:         u.IsStaff,
		Superuser:     u.IsSuperuser,
	}
}

func (p Principal) privileged() bool {
	return p.Staff || p.Superuser
}

type Action string

const (
	ActionRegister Action = "auth:register"
	ActionLogin    Action = "auth:login"
	ActionRefresh  Action = "auth:refresh"

	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	ActionListMembers  Action = "members:list"
	ActionAddMember    Action = "members:add"
	ActionRemoveMember Action = "members:remove"
	ActionUpdateRole   Action = "members:role"
)

func (a Action) public() bool {
	return a == ActionRegister || a == ActionLogin || a == ActionRefresh
}

func (a Action) membership() bool {
	switch a {
	case ActionListMembers, ActionAddMember, ActionRemoveMember, ActionUpdateRole:
		return true
	}
	return false
}

type ResourceKind int

const (
	KindNone ResourceKind = iota
	KindTeam
	KindChannel
	KindUser
)

// Resource is the target of an action. Only the field matching Kind is
// consulted. TargetUserID names the user being enrolled by members:add.
type Resource struct {
	Kind         ResourceKind
	Team         *models.Team
	Channel      *models.Channel
	User         *models.User
	TargetUserID uint
}

func TeamResource(t *models.Team) Resource {
	return Resource{Kind: KindTeam, Team: t}
}

func ChannelResource(c *models.Channel) Resource {
	return Resource{Kind: KindChannel, Channel: c}
}

// ChannelMemberResource targets the enrollment of userID into c.
func ChannelMemberResource(c *models.Channel, userID uint) Resource {
	return Resource{Kind: KindChannel, Channel: c, TargetUserID: userID}
}

// UserResource targets one account; a nil user targets the user collection.
func UserResource(u *models.User) Resource {
	return Resource{Kind: KindUser, User: u}
}

// Lookup is the read side of the membership ledger the engine consults.
type Lookup interface {
	TeamRole(ctx context.Context, teamID, userID uint) (models.TeamRole, bool, error)
	IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error)
	IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error)
}

var ErrMissingResource = errors.New("policy: resource not set for kind")

type Engine struct {
	lookup Lookup
}

func NewEngine(lookup Lookup) *Engine {
	return &Engine{lookup: lookup}
}

// Authorize evaluates the rules for p performing action on res. An error is
// returned only when the ledger lookup fails or res is malformed.
func (e *Engine) Authorize(ctx context.Context, p Principal, action Action, res Resource) (Result, error) {
	if action.public() {
		return allow("public action"), nil
	}
	if !p.Authenticated {
		return deny(ReasonUnauthenticated), nil
	}
	// membership management on a public channel is invalid for everyone,
	// staff included
	if res.Kind == KindChannel && res.Channel != nil && action.membership() && !res.Channel.IsPrivate {
		return deny(ReasonChannelNotPrivate), nil
	}
	if p.privileged() {
		return allow("staff override"), nil
	}

	switch res.Kind {
	case KindTeam:
		if res.Team == nil {
			return Result{}, ErrMissingResource
		}
		return e.team(ctx, p, action, res.Team)
	case KindChannel:
		if res.Channel == nil {
			return Result{}, ErrMissingResource
		}
		return e.channel(ctx, p, action, res.Channel, res.TargetUserID)
	case KindUser:
		return e.user(p, action, res.User), nil
	}
	return deny(ReasonUnknownAction), nil
}

func (e *Engine) team(ctx context.Context, p Principal, action Action, team *models.Team) (Result, error) {
	switch action {
	case ActionRead, ActionList, ActionListMembers, ActionCreate:
		return allow("team readable"), nil
	case ActionUpdate, ActionDelete, ActionAddMember, ActionRemoveMember, ActionUpdateRole:
		ok, err := e.managesTeam(ctx, p, team.ID, team.OwnerID)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return allow("team manager"), nil
		}
		return deny(ReasonNotTeamManager), nil
	}
	return deny(ReasonUnknownAction), nil
}

func (e *Engine) channel(ctx context.Context, p Principal, action Action, ch *models.Channel, target uint) (Result, error) {
	if action == ActionCreate {
		return allow("channel create"), nil
	}
	var (
		res Result
		err error
	)
	if ch.IsPrivate {
		res, err = e.privateChannel(ctx, p, action, ch)
	} else {
		res, err = e.publicChannel(ctx, p, ch)
	}
	if err != nil || res.Decision == Deny {
		return res, err
	}

	if action == ActionAddMember && target != 0 {
		// an existing enrollment is reported by the ledger as a duplicate
		enrolled, err := e.lookup.IsChannelMember(ctx, ch.ID, target)
		if err != nil {
			return Result{}, err
		}
		if enrolled {
			return res, nil
		}
		inTeam, err := e.lookup.IsTeamMember(ctx, ch.TeamID, target)
		if err != nil {
			return Result{}, err
		}
		if !inTeam {
			return deny(ReasonPrerequisite), nil
		}
	}
	return res, nil
}

func (e *Engine) privateChannel(ctx context.Context, p Principal, action Action, ch *models.Channel) (Result, error) {
	member, err := e.lookup.IsChannelMember(ctx, ch.ID, p.UserID)
	if err != nil {
		return Result{}, err
	}
	if member {
		return allow("channel member"), nil
	}
	if action != ActionRead {
		ok, err := e.managesTeam(ctx, p, ch.TeamID, channelOwner(ch))
		if err != nil {
			return Result{}, err
		}
		if ok {
			return allow("team manager"), nil
		}
	}
	return deny(ReasonHidden), nil
}

func (e *Engine) publicChannel(ctx context.Context, p Principal, ch *models.Channel) (Result, error) {
	if channelOwner(ch) == p.UserID {
		return allow("team owner"), nil
	}
	ok, err := e.lookup.IsTeamMember(ctx, ch.TeamID, p.UserID)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return allow("team member"), nil
	}
	return deny(ReasonNotTeamMember), nil
}

func (e *Engine) user(p Principal, action Action, u *models.User) Result {
	switch action {
	case ActionList:
		return deny(ReasonNotPrivileged)
	case ActionRead, ActionUpdate, ActionDelete:
		if u != nil && u.ID == p.UserID {
			return allow("self")
		}
		return deny(ReasonNotSelf)
	}
	return deny(ReasonUnknownAction)
}

// channelOwner is the owner of the channel's team, or zero when the team was
// not loaded.
func channelOwner(ch *models.Channel) uint {
	if ch.Team == nil {
		return 0
	}
	return ch.Team.OwnerID
}

// managesTeam is true for the owner and for admin members.
func (e *Engine) managesTeam(ctx context.Context, p Principal, teamID, ownerID uint) (bool, error) {
	if ownerID != 0 && ownerID == p.UserID {
		return true, nil
	}
	role, ok, err := e.lookup.TeamRole(ctx, teamID, p.UserID)
	if err != nil {
		return false, err
	}
	return ok && role == models.RoleAdmin, nil
}
