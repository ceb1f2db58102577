package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err, "")
	}
	if accounts == nil {
		accounts = []*models.ConnectedAccount{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accounts": accounts,
	})
}

func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	var req transfer.ConnectAccountRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	acc, err := h.s.Connect(c.Context(), GetUserID(c), &req)
	if err != nil {
		return errorResponse(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(acc)
}

func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	platform := models.Platform(c.Params("platform"))
	if err := h.s.Disconnect(c.Context(), GetUserID(c), platform); err != nil {
		return errorResponse(c, err, "")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": platform.DisplayName() + " disconnected",
	})
}

// FacebookDataDeletion is the public callback Facebook calls when a user
// removes the app.
func (h *AccountHandler) FacebookDataDeletion(c *fiber.Ctx) error {
	signed := c.FormValue("signed_request")
	if signed == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request or missing config",
		})
	}

	resp, err := h.s.HandleDataDeletion(c.Context(), signed)
	if err != nil {
		return errorResponse(c, err, "")
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
