package server

import (
	"strconv"
	"time"

	"pulse/pkg/handlers"
	"pulse/pkg/hub"
	"pulse/pkg/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Routes struct {
	Social        *handlers.SocialHandler
	Notifications *handlers.NotificationsHandler
	Hub           *hub.Hub
	Verifier      middleware.TokenVerifier

	// MutationsPerMinute caps engagement writes per caller. Zero disables
	// the limit.
	MutationsPerMinute int
}

func (r Routes) Register(app *fiber.App) {
	authed := middleware.Auth(r.Verifier)

	mutate := []fiber.Handler{authed}
	if r.MutationsPerMinute > 0 {
		mutate = append(mutate, limiter.New(limiter.Config{
			Max:        r.MutationsPerMinute,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if id, ok := middleware.Identity(c); ok {
					return "user:" + strconv.Itoa(id.ID)
				}
				return c.IP()
			},
		}))
	}
	with := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, mutate...), h)
	}

	app.Get("/hub/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": r.Hub.SessionCount(),
			"users":    r.Hub.UserCount(),
		})
	})

	posts := app.Group("/posts")
	posts.Post("/", with(r.Social.CreatePost)...)
	posts.Get("/:id/stats", r.Social.Stats)
	posts.Get("/:id/comments", r.Social.Comments)
	posts.Post("/:id/like", with(r.Social.ToggleLike)...)
	posts.Post("/:id/share", with(r.Social.Share)...)
	posts.Post("/:id/comments", with(r.Social.AddComment)...)
	posts.Delete("/:id", authed, r.Social.DeletePost)

	app.Delete("/comments/:id", authed, r.Social.DeleteComment)

	notifications := app.Group("/notifications", authed)
	notifications.Get("/", r.Notifications.List)
	notifications.Put("/:id/read", r.Notifications.MarkRead)

	app.Use("/ws", middleware.WSToken)
	app.Get("/ws/notifications", websocket.New(func(c *websocket.Conn) {
		token, _ := c.Locals("token").(string)
		r.Hub.Serve(c, token)
	}))
}
