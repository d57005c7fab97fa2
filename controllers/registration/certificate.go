package controllers

import (
	"brz/middleware"

	"github.com/gofiber/fiber/v2"
)

// VerifyCertificate is the public lookup behind the certificate QR code.
func (h *Handler) VerifyCertificate(c *fiber.Ctx) error {
	code := c.Locals("certificateCode").(string)

	view, err := h.Verifier.Verify(c.UserContext(), code)
	if err != nil {
		return h.fail(c, "verify", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate is valid!", view)
}
