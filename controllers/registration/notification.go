package controllers

import (
	"brz/middleware"
	registrationValidator "brz/validators/registration"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	query, ok := c.Locals("notificationQuery").(*registrationValidator.NotificationQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	items, err := h.Notifications.List(c.UserContext(), actor, query.UnreadOnly, query.Limit)
	if err != nil {
		return h.fail(c, "list notifications", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notifications fetched successfully!", items)
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	id := c.Locals("notificationId").(uint)

	if err := h.Notifications.MarkRead(c.UserContext(), actor, id); err != nil {
		return h.fail(c, "mark notification read", err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification marked as read!", nil)
}
