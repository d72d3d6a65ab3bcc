package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/api"
	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services/completions"
	"github.com/Egham-7/adaptive-relay/internal/services/dedup"
	"github.com/Egham-7/adaptive-relay/internal/services/dispatcher"
	"github.com/Egham-7/adaptive-relay/internal/services/registry"
	"github.com/Egham-7/adaptive-relay/internal/services/telegram"
	"github.com/Egham-7/adaptive-relay/pkg/builder"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Relay is a running chat-command relay: webhook server, dispatcher and Bot API sender.
type Relay struct {
	config      *config.Config
	builder     *builder.Builder
	app         *fiber.App
	redis       *redis.Client
	sender      *telegram.Sender
	completions *completions.Service
	webhookSet  bool
}

// NewRelay creates a relay with the given configuration.
// The cfg parameter is required and must not be nil.
func NewRelay(cfg *config.Config) *Relay {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() or the builder to create config")
	}
	return &Relay{config: cfg}
}

// NewRelayWithBuilder creates a relay from a builder, keeping its middlewares
func NewRelayWithBuilder(b *builder.Builder) (*Relay, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &Relay{config: cfg, builder: b}, nil
}

// Setup connects infrastructure, registers the bot with Telegram and builds the
// fiber app. It does not listen.
func (r *Relay) Setup(ctx context.Context) error {
	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(r.config)

	redisClient, err := createRedisClient(ctx, r.config)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	r.redis = redisClient

	reg := registry.New(r.config.Routing)
	r.sender = telegram.NewSender(r.config.Telegram)
	r.completions = completions.NewService(r.config.Client)

	botUsername, err := r.registerBot(ctx, reg.Commands())
	if err != nil {
		return err
	}

	d := dispatcher.New(reg, r.completions, dispatcher.Options{
		BotUsername:    botUsername,
		MaxRetries:     r.config.Dispatch.MaxRetries,
		RetryDelay:     r.config.Dispatch.RetryDelay,
		AttemptTimeout: r.config.Client.Timeout,
		BeforeCompletion: func(ctx context.Context, in models.InboundCommand) {
			if err := r.sender.SendChatAction(ctx, in.ChatID, telegram.ActionTyping); err != nil {
				fiberlog.Debugf("[%s] Failed to send typing action: %v", in.RequestID, err)
			}
		},
	})

	var store *dedup.Store
	if r.redis != nil {
		store = dedup.New(r.redis, r.config.Redis.DedupTTL)
	}

	r.app = createFiberApp(r.config)
	r.setupMiddleware()
	setupRoutes(r.app, r.config, reg, d, r.sender, store)

	fiberlog.Infof("Registered %d commands", reg.Len())
	return nil
}

// App returns the fiber app built by Setup
func (r *Relay) App() *fiber.App {
	return r.app
}

// Run sets up the relay, serves until SIGINT or SIGTERM and shuts down gracefully.
func (r *Relay) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Setup(ctx); err != nil {
		r.Close(context.Background())
		return err
	}
	defer r.Close(context.Background())

	listenAddr := ":" + r.config.Server.Port

	fmt.Printf("Relay starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", r.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.app.Listen(listenAddr); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fiberlog.Info("Server shutting down gracefully...")
		if err := r.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close removes the webhook it registered and releases connections
func (r *Relay) Close(ctx context.Context) {
	if r.sender != nil {
		if r.webhookSet {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := r.sender.DeleteWebhook(ctx); err != nil {
				fiberlog.Errorf("Failed to delete webhook: %v", err)
			} else {
				fiberlog.Info("Webhook removed")
			}
			cancel()
			r.webhookSet = false
		}
		r.sender.Close()
	}
	if r.completions != nil {
		r.completions.Close()
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			fiberlog.Errorf("Failed to close Redis client: %v", err)
		}
		r.redis = nil
	}
}

// registerBot publishes the command menu, registers the webhook and discovers
// the bot username, concurrently. Only a failed webhook registration is fatal.
func (r *Relay) registerBot(ctx context.Context, commands []models.CommandSpec) (string, error) {
	username := r.config.Telegram.BotUsername

	g, gctx := errgroup.WithContext(ctx)
	if username == "" {
		g.Go(func() error {
			me, err := r.sender.GetMe(gctx)
			if err != nil {
				fiberlog.Warnf("Could not look up bot username, @mentions are not filtered: %v", err)
				return nil
			}
			username = me.Username
			return nil
		})
	}

	g.Go(func() error {
		if len(commands) == 0 {
			fiberlog.Warn("No commands found in configuration to set")
			return nil
		}
		if err := r.sender.SetMyCommands(gctx, commands); err != nil {
			fiberlog.Warnf("Failed to set bot commands: %v", err)
			return nil
		}
		fiberlog.Infof("Successfully set %d bot commands", len(commands))
		return nil
	})

	webhookURL := r.config.WebhookURL()
	if webhookURL == "" {
		fiberlog.Info("telegram.webhook_base_url not set - skipping webhook registration")
	} else {
		g.Go(func() error {
			if err := r.sender.SetWebhook(gctx, webhookURL, r.config.Telegram.WebhookSecret); err != nil {
				return fmt.Errorf("failed to set webhook: %w", err)
			}
			fiberlog.Info("Webhook successfully set")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	r.webhookSet = webhookURL != ""
	return username, nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:               "AdaptiveRelay v1.0",
		EnablePrintRoutes:     !isProd,
		DisableStartupMessage: isProd,
		ReadTimeout:           2 * time.Minute,
		WriteTimeout:          2 * time.Minute,
		IdleTimeout:           5 * time.Minute,
		BodyLimit:             1 << 20,
		CaseSensitive:         true,
		StrictRouting:         false,
		Network:               "tcp",
		ServerHeader:          "AdaptiveRelay",
	})
}

func (r *Relay) setupMiddleware() {
	isProd := r.config.IsProduction()

	// Recover middleware (must be first)
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	requestTimeout := r.config.Server.RequestTimeout
	if r.builder != nil && r.builder.GetTimeoutConfig() != nil {
		requestTimeout = r.builder.GetTimeoutConfig().Timeout
	}
	r.app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	// The webhook path embeds the secret, so only the route pattern is logged
	format := "[${time}] ${status} - ${latency} ${method} ${route} ${error}\n"
	if isProd {
		format = "${time} ${status} ${method} ${route} ${latency} ${bytesSent}b\n"
	}
	r.app.Use(logger.New(logger.Config{
		Format: format,
		Output: os.Stdout,
	}))

	if r.builder != nil {
		for _, middleware := range r.builder.GetMiddlewares() {
			r.app.Use(middleware)
		}
	}

	// Profiler (dev only)
	if !isProd {
		r.app.Use(pprof.New())
	}
}

func setupRoutes(
	app *fiber.App,
	cfg *config.Config,
	reg *registry.Registry,
	d *dispatcher.Dispatcher,
	sender *telegram.Sender,
	store *dedup.Store,
) {
	webhookHandler := api.NewWebhookHandler(cfg.Telegram.WebhookSecret, 0, d, sender, store)
	healthHandler := api.NewHealthHandler(reg, store)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Post(cfg.WebhookPath(), webhookHandler.HandleUpdate)
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}
