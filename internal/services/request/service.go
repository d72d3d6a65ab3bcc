package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Egham-7/adaptive-relay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// requestIDLocalKey is the shared key for storing request ID in fiber locals
	requestIDLocalKey = "request_id"
	// maxRequestIDLength is the maximum allowed length for request IDs
	maxRequestIDLength = 256
)

// Service provides request handling utilities for webhook handlers
type Service struct{}

// NewService creates a new request service
func NewService() *Service {
	return &Service{}
}

// sanitizeRequestID sanitizes and caps the length of a request ID
func (s *Service) sanitizeRequestID(reqID string) string {
	sanitized := strings.TrimSpace(reqID)
	if len(sanitized) > maxRequestIDLength {
		sanitized = sanitized[:maxRequestIDLength]
	}
	return sanitized
}

// GetRequestID returns the request's X-Request-ID, or a generated one, cached in locals
func (s *Service) GetRequestID(c *fiber.Ctx) string {
	if cachedID, ok := c.Locals(requestIDLocalKey).(string); ok && cachedID != "" {
		return cachedID
	}

	requestID := s.sanitizeRequestID(c.Get("X-Request-ID"))
	if requestID == "" {
		requestID = s.GenerateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

// GenerateRequestID creates a new random request ID
func (s *Service) GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// ParseUpdate decodes a Telegram update from the request body
func (s *Service) ParseUpdate(c *fiber.Ctx) (*models.TelegramUpdate, error) {
	body := c.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	var update models.TelegramUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("invalid update JSON: %w", err)
	}
	return &update, nil
}
