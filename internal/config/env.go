package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/Egham-7/adaptive-relay/internal/models"

	"gopkg.in/yaml.v3"
)

// LookupFunc resolves an environment variable; ok is false when it is unset
type LookupFunc func(name string) (value string, ok bool)

// EnvResolver substitutes ${NAME} and ${NAME:-default} placeholders.
// An unset variable without a default is a ConfigMissingEnvVar error,
// never an empty string.
type EnvResolver struct {
	lookup LookupFunc
}

// NewEnvResolver returns a resolver backed by the process environment
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookup: os.LookupEnv}
}

// NewEnvResolverWithLookup returns a resolver backed by lookup
func NewEnvResolverWithLookup(lookup LookupFunc) *EnvResolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvResolver{lookup: lookup}
}

// ResolveString replaces every placeholder in s. path names the document
// location and is only used for error reporting.
func (r *EnvResolver) ResolveString(s, path string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", models.NewInvalidDocumentError(path, "unterminated ${ placeholder", nil)
		}
		body := rest[start+2 : start+end]
		rest = rest[start+end+1:]

		name, def, hasDefault := strings.Cut(body, ":-")
		if !validVarName(name) {
			return "", models.NewInvalidDocumentError(path, "invalid placeholder ${"+body+"}", nil)
		}

		value, ok := r.lookup(name)
		if !ok {
			if !hasDefault {
				return "", models.NewMissingEnvVarError(name, path)
			}
			value = def
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// ResolveNode walks every scalar of a parsed document and resolves it in place.
// Plain scalars that changed lose their tag so YAML re-types them on decode,
// which lets `temperature: ${TEMP}` decode as a number.
func (r *EnvResolver) ResolveNode(node *yaml.Node) error {
	return r.walk(node, "")
}

func (r *EnvResolver) walk(node *yaml.Node, path string) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := r.walk(child, path); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if err := r.walk(node.Content[i+1], joinPath(path, key)); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			if err := r.walk(child, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		resolved, err := r.ResolveString(node.Value, path)
		if err != nil {
			return err
		}
		if resolved != node.Value {
			node.Value = resolved
			if node.Style == 0 {
				node.Tag = ""
				if isNullSpelling(resolved) {
					node.Tag = "!!str"
				}
			}
		}
	case yaml.AliasNode:
		// the anchor target is resolved where it is defined
	}
	return nil
}

func isNullSpelling(s string) bool {
	switch s {
	case "", "~", "null", "Null", "NULL":
		return true
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ContainsPlaceholder reports whether s still carries ${...} syntax
func ContainsPlaceholder(s string) bool {
	i := strings.Index(s, "${")
	return i >= 0 && strings.IndexByte(s[i:], '}') > 0
}
