package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type LogHandler struct {
	s service.LogService
}

func NewLogHandler(service service.LogService) *LogHandler {
	return &LogHandler{s: service}
}

func (h *LogHandler) ListLogs(c *fiber.Ctx) error {
	filter := repository.LogFilter{
		Type: models.LogType(c.Query("type")),
		Page: pageFromQuery(c, 20),
	}

	logs, total, err := h.s.List(c.Context(), GetUserID(c), filter)
	if err != nil {
		return errorResponse(c, err, "")
	}
	if logs == nil {
		logs = []*models.LogEntry{}
	}

	return c.Status(fiber.StatusOK).JSON(transfer.LogListResponse{
		Logs:       logs,
		Pagination: pagination(filter.Page, total),
	})
}
