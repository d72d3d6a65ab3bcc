package builder

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeoutConfig = &TimeoutConfig{
		Timeout: timeout,
	}
	return b
}

func (b *Builder) WithMiddleware(middleware fiber.Handler) *Builder {
	b.middlewares = append(b.middlewares, middleware)
	return b
}
