package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"teamhub/apperr"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Count   *int64      `json:"count,omitempty"`
}

type ErrorBody struct {
	Code   apperr.Kind         `json:"code"`
	Detail string              `json:"detail"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// SuccessResponse writes a data envelope with the given status.
func SuccessResponse(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Envelope{Message: message, Data: data})
}

// ListResponse writes a data envelope carrying the item count.
func ListResponse(c *fiber.Ctx, message string, data interface{}, count int) error {
	n := int64(count)
	return c.Status(fiber.StatusOK).JSON(Envelope{Message: message, Data: data, Count: &n})
}

// MessageResponse writes an envelope with only a message.
func MessageResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Message: message})
}

// ErrorResponse renders err as an error envelope. Errors without a kind are
// reported as internal failures and their detail is not exposed.
func ErrorResponse(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	body := &ErrorBody{Code: kind, Detail: err.Error()}
	message := err.Error()

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		body.Fields = appErr.Fields
	}
	if kind == apperr.KindInternal {
		LogError("internal_error", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		message = "Internal server error"
		body.Detail = message
	}
	return c.Status(kind.Status()).JSON(Envelope{Message: message, Error: body})
}

// FiberErrorHandler keeps errors that escape handlers in the same envelope.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(Envelope{
			Message: fe.Message,
			Error:   &ErrorBody{Code: kindForStatus(fe.Code), Detail: fe.Message},
		})
	}
	return ErrorResponse(c, err)
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case fiber.StatusNotFound:
		return apperr.KindNotFound
	case fiber.StatusUnauthorized:
		return apperr.KindUnauthorized
	case fiber.StatusForbidden:
		return apperr.KindForbidden
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusUnprocessableEntity, fiber.StatusTooManyRequests:
		return apperr.KindInvalidOperation
	}
	return apperr.KindInternal
}

// ParseID parses a positive integer path or query value.
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// TrimPtr trims the string behind p in place.
func TrimPtr(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}
