package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"teamhub/apperr"
	"teamhub/middleware"
	"teamhub/policy"
	"teamhub/utils"
)

// parseBody decodes the JSON body into out and runs its validate tags.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.FieldError("body", "Invalid request body")
	}
	return utils.ValidateStruct(out)
}

func pathID(c *fiber.Ctx, name, notFound string) (uint, error) {
	id, ok := utils.ParseID(c.Params(name))
	if !ok {
		return 0, apperr.NotFound(notFound)
	}
	return id, nil
}

func authorize(c *fiber.Ctx, engine *policy.Engine, action policy.Action, res policy.Resource) error {
	return engine.Check(c.UserContext(), middleware.CurrentPrincipal(c), action, res)
}

// userIDParam reads a user id from the JSON body field or the query string,
// whichever is present.
func userIDParam(c *fiber.Ctx) (uint, error) {
	var body struct {
		UserID uint `json:"user_id"`
	}
	if len(c.Body()) > 0 && strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(&body); err != nil {
			return 0, apperr.FieldError("body", "Invalid request body")
		}
	}
	if body.UserID != 0 {
		return body.UserID, nil
	}
	raw := c.Query("user_id")
	if raw == "" {
		return 0, apperr.FieldError("user_id", "This field is required.")
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		return 0, apperr.FieldError("user_id", "A valid integer is required.")
	}
	return id, nil
}
