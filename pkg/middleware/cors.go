package middleware

import (
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func CORSConfig(origins string) cors.Config {
	if origins == "" {
		origins = "http://localhost:3000"
	}
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: "POST,GET,DELETE,PUT,OPTIONS",
		AllowHeaders: "Content-Type,Cache-Control,Pragma,Authorization",
	}
}
