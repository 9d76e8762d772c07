package helpers

import (
	"errors"

	"wagerd/escrow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return JSONErrorStatus(c, fiber.StatusBadRequest, message)
}

func JSONErrorStatus(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// StatusFor maps an escrow error to its HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, escrow.ErrInsufficientBalance) {
		return fiber.StatusPaymentRequired
	}
	switch escrow.KindOf(err) {
	case escrow.KindValidation:
		return fiber.StatusBadRequest
	case escrow.KindState, escrow.KindTiming:
		return fiber.StatusConflict
	case escrow.KindAuthorization:
		return fiber.StatusForbidden
	case escrow.KindArithmetic:
		return fiber.StatusUnprocessableEntity
	case escrow.KindNotFound:
		return fiber.StatusNotFound
	case escrow.KindSubstrate:
		if errors.Is(err, escrow.ErrMatchExists) || errors.Is(err, escrow.ErrAccountExists) {
			return fiber.StatusConflict
		}
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// EscrowError writes err in the standard envelope with its stable code as
// the message. Unclassified errors are logged and reported as INTERNAL_ERROR.
func EscrowError(c *fiber.Ctx, err error) error {
	code := escrow.CodeOf(err)
	if code == "" {
		log.Errorf("❌ %s %s: %v", c.Method(), c.Path(), err)
		code = "INTERNAL_ERROR"
	}
	return JSONErrorStatus(c, StatusFor(err), code)
}
