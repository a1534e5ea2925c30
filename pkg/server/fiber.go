package server

import (
	"errors"
	"log"

	"pulse/pkg/apperr"
	"pulse/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func NewApp(name, allowOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:           name,
		ReduceMemoryUsage: true,
		ErrorHandler:      errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(middleware.CORSConfig(allowOrigins)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})

	return app
}

// errorHandler renders every error as {"error": msg}. Internal causes are
// logged, never returned.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[PORTAL] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.Message(err)})
}
