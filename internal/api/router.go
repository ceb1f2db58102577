package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the dependencies the HTTP layer calls into. Media may be nil
// when no object storage is configured.
type Services struct {
	Posts    service.PostService
	Accounts service.AccountService
	Logs     service.LogService
	Media    service.MediaService
}

func NewApp(cfg *config.Config, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		BodyLimit:    int(service.MaxMediaSize) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error(err.Error(), "path", c.Path())
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	accounts := handlers.NewAccountHandler(svc.Accounts)
	app.Post("/webhooks/facebook/data-deletion", accounts.FacebookDataDeletion)

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(svc.Posts)
	api.Post("/posts/schedule", post.CreatePost)
	api.Get("/posts/scheduled", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/:id/cancel", post.CancelPost)
	api.Delete("/posts/:id", post.RemovePost)

	api.Get("/social/accounts", accounts.ListAccounts)
	api.Post("/social/accounts", accounts.ConnectAccount)
	api.Delete("/social/accounts/:platform", accounts.DisconnectAccount)

	logs := handlers.NewLogHandler(svc.Logs)
	api.Get("/logs", logs.ListLogs)

	if svc.Media != nil {
		media := handlers.NewMediaHandler(svc.Media)
		api.Post("/media", media.UploadMedia)
	}

	return app
}
