package models

// CommandSpec binds a chat command to an endpoint, a model and a parameter set
type CommandSpec struct {
	Command     string `yaml:"-"`
	Description string `yaml:"description"`
	Endpoint    string `yaml:"api_endpoint"`
	Model       string `yaml:"model"`
	Parameters  Params `yaml:"parameters,omitempty"`
}

// Clone returns a copy that shares no mutable state with the receiver
func (c CommandSpec) Clone() CommandSpec {
	c.Parameters = c.Parameters.Clone()
	return c
}

// InboundCommand is the normalized event handed over by the chat transport
type InboundCommand struct {
	RequestID string
	Text      string // raw message text, e.g. "/chat@relay_bot hello there"
	SenderID  int64  // not used by routing
	ChatID    int64
	MessageID int64
}
