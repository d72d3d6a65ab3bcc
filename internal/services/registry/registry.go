package registry

import (
	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"
)

// Resolved is a command bound to its endpoint, ready for execution
type Resolved struct {
	Command  models.CommandSpec
	Endpoint models.Endpoint
}

// Registry is a read-only command lookup built once from a ResolvedConfig.
// Lookups are exact-match on the full token; callers strip "@botname" first.
type Registry struct {
	entries map[string]Resolved
	order   []models.CommandSpec
}

// New builds the registry. Referential integrity was checked when the
// ResolvedConfig was built, so every command has its endpoint.
func New(rc *config.ResolvedConfig) *Registry {
	if rc == nil {
		panic("registry.New: resolved config cannot be nil")
	}

	commands := rc.Commands()
	r := &Registry{
		entries: make(map[string]Resolved, len(commands)),
		order:   commands,
	}
	for _, cmd := range commands {
		ep, _ := rc.Endpoint(cmd.Endpoint)
		r.entries[cmd.Command] = Resolved{Command: cmd, Endpoint: ep}
	}
	return r
}

// Lookup returns the resolved execution spec for token
func (r *Registry) Lookup(token string) (Resolved, bool) {
	entry, ok := r.entries[token]
	if !ok {
		return Resolved{}, false
	}
	entry.Command = entry.Command.Clone()
	return entry, true
}

// Commands lists the registered commands in document order
func (r *Registry) Commands() []models.CommandSpec {
	out := make([]models.CommandSpec, len(r.order))
	for i, cmd := range r.order {
		out[i] = cmd.Clone()
	}
	return out
}

// Len returns the number of registered commands
func (r *Registry) Len() int {
	return len(r.entries)
}
