package handlers

import (
	"pulse/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type NotificationsHandler struct {
	svc *services.NotificationService
}

func NewNotifications(svc *services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{svc: svc}
}

func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}

	list, err := h.svc.List(c.UserContext(), me, c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.svc.MarkRead(c.UserContext(), me, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "read"})
}
