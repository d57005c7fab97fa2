package controllers

import (
	"brz/apperrors"
	"brz/middleware"
	"brz/models"
	"brz/repository"
	"brz/services"
	"brz/storage"
	registrationValidator "brz/validators/registration"

	"github.com/gofiber/fiber/v2"
)

// Submit creates a registration for the caller, or an anonymous one when no
// token was sent.
func (h *Handler) Submit(c *fiber.Ctx) error {
	input, ok := c.Locals("validatedRegistration").(*services.SubmitInput)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var actor *models.Actor
	if a, ok := middleware.CurrentActor(c); ok {
		actor = &a
	}

	reg, err := h.Registrations.Submit(c.UserContext(), actor, *input)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Registration submitted successfully!", reg)
}

func (h *Handler) ListMine(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	regs, err := h.Registrations.ListMine(c.UserContext(), actor)
	if err != nil {
		return h.fail(c, "list mine", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registrations fetched successfully!", regs)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)

	reg, err := h.Registrations.Get(c.UserContext(), actor, id)
	if err != nil {
		return h.fail(c, "get", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registration fetched successfully!", reg)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)
	upd, ok := c.Locals("validatedProfileUpdate").(*services.ProfileUpdate)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	reg, err := h.Registrations.UpdateProfile(c.UserContext(), actor, id, *upd)
	if err != nil {
		return h.fail(c, "update profile", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registration updated successfully!", reg)
}

func (h *Handler) ReplacePaymentProof(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)
	proof, ok := c.Locals("validatedPaymentProof").(storage.UploadPayload)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	reg, err := h.Registrations.ReplacePaymentProof(c.UserContext(), actor, id, proof)
	if err != nil {
		return h.fail(c, "replace payment proof", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment proof updated successfully!", reg)
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)

	if err := h.Registrations.Cancel(c.UserContext(), actor, id); err != nil {
		return h.fail(c, "cancel", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registration cancelled successfully!", nil)
}

// AdminList returns a filtered page of registrations with pagination metadata.
func (h *Handler) AdminList(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	filter, ok := c.Locals("registrationFilter").(*repository.RegistrationFilter)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	regs, total, err := h.Registrations.List(c.UserContext(), actor, *filter)
	if err != nil {
		return h.fail(c, "list", err)
	}

	totalPages := (total + int64(filter.Limit) - 1) / int64(filter.Limit)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registrations fetched successfully!", fiber.Map{
		"registrations": regs,
		"pagination": fiber.Map{
			"page":        filter.Page,
			"limit":       filter.Limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

func (h *Handler) Decide(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)
	req, ok := c.Locals("validatedDecision").(*registrationValidator.DecisionRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	reg, err := h.Registrations.Decide(c.UserContext(), actor, id, req.Outcome, req.Notes)
	if err != nil {
		return h.fail(c, "decide", err)
	}

	message := "Registration approved successfully!"
	if req.Outcome == services.OutcomeReject {
		message = "Registration rejected successfully!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, reg)
}

func (h *Handler) IssueCertificate(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)
	req, ok := c.Locals("validatedIssueRequest").(*services.IssueRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	reg, err := h.Registrations.IssueCertificateAndComplete(c.UserContext(), actor, id, *req)
	if err != nil {
		return h.fail(c, "issue certificate", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate issued successfully!", reg)
}

func (h *Handler) CompleteWithoutCertificate(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)

	reg, err := h.Registrations.MarkCompletedWithoutCertificate(c.UserContext(), actor, id)
	if err != nil {
		return h.fail(c, "complete without certificate", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registration marked as completed!", reg)
}

func (h *Handler) AdminDelete(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("registrationId").(uint)

	reg, err := h.Registrations.OperatorDelete(c.UserContext(), actor, id)
	if err != nil {
		return h.fail(c, "delete", err)
	}
	if reg.CertificateCode != nil {
		h.Verifier.Forget(*reg.CertificateCode)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Registration deleted successfully!", nil)
}

// fail logs unexpected errors and writes the error envelope.
func (h *Handler) fail(c *fiber.Ctx, operation string, err error) error {
	if apperrors.CodeOf(err) == apperrors.CodeInternal {
		h.Log.Error("registration request failed", map[string]interface{}{
			"operation": operation,
			"path":      c.Path(),
			"error":     err.Error(),
		})
	}
	return middleware.ErrorResponse(c, err)
}
