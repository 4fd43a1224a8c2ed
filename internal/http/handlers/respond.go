package handlers

import "github.com/gofiber/fiber/v2"

// fail renders the API error body. Stack traces for unexpected errors
// are attached by the app-level error handler, not here.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}
