package builder

import "time"

func (b *Builder) Port(port string) *Builder {
	b.cfg.Server.Port = port
	return b
}

func (b *Builder) Environment(env string) *Builder {
	b.cfg.Server.Environment = env
	return b
}

func (b *Builder) LogLevel(level string) *Builder {
	b.cfg.Server.LogLevel = level
	return b
}

// RequestTimeout bounds the handling of one webhook update
func (b *Builder) RequestTimeout(timeout time.Duration) *Builder {
	b.cfg.Server.RequestTimeout = timeout
	return b
}

// ClientTimeout bounds every upstream completion call
func (b *Builder) ClientTimeout(timeout time.Duration) *Builder {
	b.cfg.Client.Timeout = timeout
	return b
}

// ResponseLimits caps upstream response bodies and the error bodies kept for logs
func (b *Builder) ResponseLimits(maxResponseBytes int64, maxErrorBodyBytes int) *Builder {
	b.cfg.Client.MaxResponseBytes = maxResponseBytes
	b.cfg.Client.MaxErrorBodyBytes = maxErrorBodyBytes
	return b
}

// Retries lets the dispatcher retry unreachable and timed out endpoints
func (b *Builder) Retries(maxRetries int, delay time.Duration) *Builder {
	b.cfg.Dispatch.MaxRetries = maxRetries
	b.cfg.Dispatch.RetryDelay = delay
	return b
}

// Redis enables update de-duplication
func (b *Builder) Redis(url string, ttl time.Duration) *Builder {
	b.cfg.Redis = &RedisConfig{URL: url, DedupTTL: ttl}
	return b
}
