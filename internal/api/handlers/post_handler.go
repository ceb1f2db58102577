package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.Create(c.Context(), GetUserID(c), &req)
	if err != nil {
		return errorResponse(c, err, "")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post":    post,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	filter := repository.PostFilter{
		Status: models.PostStatus(c.Query("status")),
		Page:   pageFromQuery(c, 10),
	}

	posts, total, err := h.s.List(c.Context(), GetUserID(c), filter)
	if err != nil {
		return errorResponse(c, err, "")
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}

	return c.Status(fiber.StatusOK).JSON(transfer.PostListResponse{
		Posts:      posts,
		Pagination: pagination(filter.Page, total),
	})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "")
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	if err := h.s.Cancel(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return errorResponse(c, err, "Only pending posts can be cancelled")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post cancelled",
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return errorResponse(c, err, "Cannot delete a published or processing post")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post deleted successfully",
	})
}
