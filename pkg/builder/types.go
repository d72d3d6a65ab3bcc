package builder

import (
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"
)

// TimeoutConfig overrides the per-request timeout middleware
type TimeoutConfig struct {
	Timeout time.Duration
}

type RedisConfig = models.RedisConfig
