package builder

import "github.com/Egham-7/adaptive-relay/internal/models"

type CommandBuilder struct {
	endpoint    string
	model       string
	description string
	params      models.Params
}

func NewCommandBuilder(endpoint, model string) *CommandBuilder {
	return &CommandBuilder{
		endpoint: endpoint,
		model:    model,
		params:   models.Params{},
	}
}

func (cb *CommandBuilder) WithDescription(description string) *CommandBuilder {
	cb.description = description
	return cb
}

// WithParam sets a provider parameter, replacing an earlier value for key
func (cb *CommandBuilder) WithParam(key string, value models.ParamValue) *CommandBuilder {
	for i := range cb.params {
		if cb.params[i].Key == key {
			cb.params[i].Value = value
			return cb
		}
	}
	cb.params = append(cb.params, models.Param{Key: key, Value: value})
	return cb
}

func (cb *CommandBuilder) WithTemperature(t float64) *CommandBuilder {
	return cb.WithParam("temperature", models.FloatParam(t))
}

func (cb *CommandBuilder) WithMaxTokens(n int64) *CommandBuilder {
	return cb.WithParam("max_tokens", models.IntParam(n))
}

func (cb *CommandBuilder) Build() models.CommandSpec {
	return models.CommandSpec{
		Description: cb.description,
		Endpoint:    cb.endpoint,
		Model:       cb.model,
		Parameters:  cb.params.Clone(),
	}
}

// AddCommand registers cmd under token, e.g. "/chat". Validation happens in Build.
func (b *Builder) AddCommand(token string, cmd models.CommandSpec) *Builder {
	cmd.Command = token
	b.commands = append(b.commands, cmd)
	return b
}
