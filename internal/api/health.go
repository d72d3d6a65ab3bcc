package api

import (
	"context"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/services/dedup"
	"github.com/Egham-7/adaptive-relay/internal/services/registry"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	registry *registry.Registry
	dedup    *dedup.Store
}

// NewHealthHandler creates a new health check handler. store may be nil.
func NewHealthHandler(reg *registry.Registry, store *dedup.Store) *HealthHandler {
	return &HealthHandler{
		registry: reg,
		dedup:    store,
	}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	redisStatus := h.checkRedis()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK

	if redisStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	response := fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"redis":    redisStatus,
			"commands": h.registry.Len(),
		},
	}

	return c.Status(statusCode).JSON(response)
}

// Root is the welcome endpoint
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "Bot is running"})
}

// checkRedis verifies Redis connectivity; de-duplication is optional
func (h *HealthHandler) checkRedis() string {
	if h.dedup == nil {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.dedup.Ping(ctx); err != nil {
		return "unhealthy"
	}

	return "healthy"
}
