package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"teamhub/apperr"
	"teamhub/models"
	"teamhub/policy"
	"teamhub/store"
	"teamhub/utils"
)

const (
	localUser      = "user"
	localUserID    = "userID"
	localPrincipal = "principal"
)

// Protected resolves the bearer token (or the access_token cookie) to an
// active user and stores the user and its principal in the request locals.
func Protected(issuer *utils.TokenIssuer, users store.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return utils.ErrorResponse(c, apperr.Unauthorized("Invalid authorization format"))
			}
			token = parts[1]
		} else {
			token = c.Cookies("access_token")
			if token == "" {
				return utils.ErrorResponse(c, apperr.Unauthorized("Authentication credentials were not provided."))
			}
		}

		claims, err := issuer.ParseAccessToken(token)
		if err != nil {
			return utils.ErrorResponse(c, apperr.Unauthorized("Invalid or expired token"))
		}

		user, err := users.GetUser(c.UserContext(), claims.UserID)
		if apperr.Is(err, apperr.KindNotFound) {
			return utils.ErrorResponse(c, apperr.Unauthorized("User not found"))
		}
		if err != nil {
			return utils.ErrorResponse(c, err)
		}
		if !user.IsActive {
			return utils.ErrorResponse(c, apperr.Unauthorized("User is inactive"))
		}
		if claims.TokenVersion != user.TokenVersion {
			return utils.ErrorResponse(c, apperr.Unauthorized("Invalid token version"))
		}

		c.Locals(localUser, user)
		c.Locals(localUserID, user.ID)
		c.Locals(localPrincipal, policy.PrincipalFor(user))
		return c.Next()
	}
}

// CurrentUser returns the user set by Protected, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

// CurrentPrincipal returns the caller's principal; anonymous when Protected
// did not run.
func CurrentPrincipal(c *fiber.Ctx) policy.Principal {
	if p, ok := c.Locals(localPrincipal).(policy.Principal); ok {
		return p
	}
	return policy.Anonymous()
}
