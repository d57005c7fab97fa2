package middleware

import (
	"brz/apperrors"
	"errors"

	"github.com/gofiber/fiber/v2"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse maps a service error onto the envelope, exposing the taxonomy
// tag as data.error_code. Internal errors keep their details out of the body.
func ErrorResponse(c *fiber.Ctx, err error) error {
	code := apperrors.CodeOf(err)
	message := "Something went wrong!"
	data := fiber.Map{"error_code": code}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && code != apperrors.CodeInternal {
		message = appErr.Message
		if len(appErr.Fields) > 0 {
			data["fields"] = appErr.Fields
		}
	}
	return JsonResponse(c, apperrors.HTTPStatus(code), false, message, data)
}
