package utils

import "github.com/gofiber/fiber/v2"

// SendSuccess sends a success response, flattening payload keys into the
// top-level object so callers get {success, message, submission, ...}.
func SendSuccess(c *fiber.Ctx, message string, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for key, value := range payload {
		body[key] = value
	}

	return c.Status(fiber.StatusOK).JSON(body)
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
