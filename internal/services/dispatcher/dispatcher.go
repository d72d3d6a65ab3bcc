package dispatcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services/completions"
	"github.com/Egham-7/adaptive-relay/internal/services/registry"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// FailureReply is the only failure text chat users ever see
const FailureReply = "Sorry, the request failed. Please try again later."

// State is the terminal state of one dispatched update
type State string

const (
	StateReplied   State = "replied"
	StateHelp      State = "help"
	StateFailed    State = "failed"
	StateIgnored   State = "ignored"
	StateAbandoned State = "abandoned"
)

// Outcome is the result of dispatching one update
type Outcome struct {
	State   State
	Command string
	Reply   string
	Err     error // *models.DispatchError or *models.ClientError; never shown to users
}

// ShouldReply reports whether Reply must be sent back to the chat
func (o Outcome) ShouldReply() bool {
	switch o.State {
	case StateReplied, StateHelp, StateFailed:
		return true
	default:
		return false
	}
}

// Options configures the dispatcher
type Options struct {
	// BotUsername drops commands addressed to other bots ("/chat@other_bot")
	BotUsername string
	// MaxRetries is the number of extra attempts for Unreachable and Timeout failures
	MaxRetries int
	// RetryDelay is the linear backoff step between attempts
	RetryDelay time.Duration
	// AttemptTimeout is the per-call client timeout. A retry is skipped when
	// the update's deadline leaves less than the delay plus this.
	AttemptTimeout time.Duration
	// BeforeCompletion runs once a command is resolved, e.g. to show a typing indicator
	BeforeCompletion func(ctx context.Context, in models.InboundCommand)
}

// Dispatcher turns one inbound command into at most one reply
type Dispatcher struct {
	registry *registry.Registry
	client   completions.Client
	opts     Options
	help     string
}

// New creates a dispatcher over an immutable registry
func New(reg *registry.Registry, client completions.Client, opts Options) *Dispatcher {
	if reg == nil {
		panic("dispatcher.New: registry cannot be nil")
	}
	if client == nil {
		panic("dispatcher.New: client cannot be nil")
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	opts.BotUsername = strings.TrimPrefix(opts.BotUsername, "@")

	return &Dispatcher{
		registry: reg,
		client:   client,
		opts:     opts,
		help:     buildHelp(reg.Commands()),
	}
}

// Dispatch resolves the command in in, performs the completion and maps the
// result to an Outcome. It never panics on upstream failures and never puts
// diagnostic detail into Outcome.Reply.
func (d *Dispatcher) Dispatch(ctx context.Context, in models.InboundCommand) Outcome {
	norm, ok := Normalize(in.Text)
	if !ok {
		return Outcome{State: StateIgnored}
	}
	if norm.Addressee != "" && d.opts.BotUsername != "" && !strings.EqualFold(norm.Addressee, d.opts.BotUsername) {
		fiberlog.Debugf("[%s] Ignoring %s addressed to @%s", in.RequestID, norm.Token, norm.Addressee)
		return Outcome{State: StateIgnored, Command: norm.Token}
	}

	resolved, found := d.registry.Lookup(norm.Token)
	if !found {
		err := models.NewUnknownCommandError(norm.Token)
		fiberlog.Debugf("[%s] %v", in.RequestID, err)
		return Outcome{State: StateHelp, Command: norm.Token, Reply: d.help, Err: err}
	}

	if d.opts.BeforeCompletion != nil {
		d.opts.BeforeCompletion(ctx, in)
	}

	req := models.NewCompletionRequest(resolved.Command, resolved.Endpoint, norm.Message)
	fiberlog.Infof("[%s] Dispatching %s to endpoint %s (model %s)", in.RequestID, norm.Token, req.EndpointID, req.Model)

	result, err := d.complete(ctx, in.RequestID, req)
	if err != nil {
		// only a cancelled update goes unanswered; an expired deadline is a failure
		if errors.Is(ctx.Err(), context.Canceled) {
			fiberlog.Warnf("[%s] Abandoned %s: %v", in.RequestID, norm.Token, ctx.Err())
			return Outcome{State: StateAbandoned, Command: norm.Token, Err: err}
		}
		fiberlog.Errorf("[%s] Command %s failed: %v", in.RequestID, norm.Token, err)
		return Outcome{State: StateFailed, Command: norm.Token, Reply: FailureReply, Err: err}
	}

	return Outcome{State: StateReplied, Command: norm.Token, Reply: result.Text}
}

// complete runs the client call with the retry policy. Only Unreachable and
// Timeout are retried, with a linear backoff.
func (d *Dispatcher) complete(ctx context.Context, requestID string, req models.CompletionRequest) (models.CompletionResult, error) {
	var lastErr error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * d.opts.RetryDelay
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay+d.opts.AttemptTimeout {
				fiberlog.Warnf("[%s] Not retrying endpoint %s, the update deadline is too close: %v",
					requestID, req.EndpointID, lastErr)
				break
			}
			fiberlog.Warnf("[%s] Retrying endpoint %s in %v (attempt %d/%d): %v",
				requestID, req.EndpointID, delay, attempt+1, d.opts.MaxRetries+1, lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return models.CompletionResult{}, lastErr
			case <-timer.C:
			}
		}

		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return models.CompletionResult{}, lastErr
			}
			return models.CompletionResult{}, err
		}

		result, err := d.client.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var clientErr *models.ClientError
		if !errors.As(err, &clientErr) || !clientErr.IsRetryable() {
			break
		}
	}
	return models.CompletionResult{}, lastErr
}

func buildHelp(commands []models.CommandSpec) string {
	var b strings.Builder
	b.WriteString("Unknown command. Available commands:")
	for _, cmd := range commands {
		b.WriteString("\n")
		b.WriteString(cmd.Command)
		if cmd.Description != "" {
			b.WriteString(" - ")
			b.WriteString(cmd.Description)
		}
	}
	return b.String()
}
