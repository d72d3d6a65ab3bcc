package response

import (
	"github.com/gofiber/fiber/v2"
)

// Service provides HTTP response utilities for webhook handlers
type Service struct{}

// NewService creates a new response service
func NewService() *Service {
	return &Service{}
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Error sends an error response with specified status, type, and code
func (s *Service) Error(c *fiber.Ctx, status int, message, errorType, code string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	})
}

// BadRequest rejects a malformed update
func (s *Service) BadRequest(c *fiber.Ctx, message string) error {
	return s.Error(c, fiber.StatusBadRequest, message, "invalid_request_error", "bad_request")
}

// Unauthorized rejects a request without the webhook secret
func (s *Service) Unauthorized(c *fiber.Ctx) error {
	return s.Error(c, fiber.StatusUnauthorized, "invalid webhook secret", "authentication_error", "unauthorized")
}

// Accepted acknowledges an update. Telegram only looks at the status code.
func (s *Service) Accepted(c *fiber.Ctx, state string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "state": state})
}
