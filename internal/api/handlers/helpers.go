package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const UserIDKey = "user_id"

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(UserIDKey).(string)
	return userID
}

func pageFromQuery(c *fiber.Ctx, defaultLimit int) repository.Page {
	return repository.Page{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", defaultLimit),
	}
}

func pagination(page repository.Page, total int64) transfer.Pagination {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = 10
	}
	if page.Limit > 100 {
		page.Limit = 100
	}
	pages := (total + int64(page.Limit) - 1) / int64(page.Limit)
	return transfer.Pagination{Page: page.Page, Limit: page.Limit, Total: total, Pages: pages}
}

// errorResponse maps service and repository errors to a status code.
func errorResponse(c *fiber.Ctx, err error, conflictMsg string) error {
	status := fiber.StatusInternalServerError
	msg := "Something went wrong"

	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrAccountNotConnected):
		status, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		status, msg = fiber.StatusNotFound, "Not found"
	case errors.Is(err, repository.ErrConflict):
		status, msg = fiber.StatusConflict, conflictMsg
	default:
		slog.Error(err.Error(), "path", c.Path())
	}

	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}
