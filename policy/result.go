package policy

import (
	"context"

	"teamhub/apperr"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DenyReason describes why a check was denied.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonUnauthenticated
	ReasonNotTeamManager
	ReasonNotTeamMember
	// ReasonHidden denies access to a private channel the caller cannot see.
	ReasonHidden
	ReasonChannelNotPrivate
	ReasonPrerequisite
	ReasonNotSelf
	ReasonNotPrivileged
	ReasonUnknownAction
)

func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnauthenticated:
		return "not authenticated"
	case ReasonNotTeamManager:
		return "not team owner or admin"
	case ReasonNotTeamMember:
		return "not a team member"
	case ReasonHidden:
		return "resource hidden"
	case ReasonChannelNotPrivate:
		return "channel is not private"
	case ReasonPrerequisite:
		return "target user is not a team member"
	case ReasonNotSelf:
		return "not the account owner"
	case ReasonNotPrivileged:
		return "staff only"
	default:
		return "unknown action"
	}
}

// Result is the outcome of Authorize. Rule names the rule that allowed the
// action; Reason is only meaningful on Deny.
type Result struct {
	Decision Decision
	Reason   DenyReason
	Rule     string
}

func allow(rule string) Result {
	return Result{Decision: Allow, Rule: rule}
}

func deny(reason DenyReason) Result {
	return Result{Decision: Deny, Reason: reason}
}

func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Err converts a denial into the error kind the API reports.
func (r Result) Err() error {
	if r.Decision == Allow {
		return nil
	}
	switch r.Reason {
	case ReasonUnauthenticated:
		return apperr.Unauthorized("Authentication credentials were not provided.")
	case ReasonHidden:
		return apperr.NotFound("Channel not found")
	case ReasonChannelNotPrivate:
		return apperr.InvalidOperation("Members can only be managed for private channels.")
	case ReasonPrerequisite:
		return apperr.PrerequisiteNotMet("User must be a member of the team first.")
	}
	return apperr.Forbidden("You do not have permission to perform this action.")
}

// Check runs Authorize and returns the denial as an error.
func (e *Engine) Check(ctx context.Context, p Principal, action Action, res Resource) error {
	result, err := e.Authorize(ctx, p, action, res)
	if err != nil {
		return apperr.Internal(err, "authorization check failed")
	}
	return result.Err()
}
