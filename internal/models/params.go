package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParamKind tags the variant held by a ParamValue
type ParamKind int

const (
	ParamNumber ParamKind = iota
	ParamString
	ParamBool
)

func (k ParamKind) String() string {
	switch k {
	case ParamNumber:
		return "number"
	case ParamString:
		return "string"
	case ParamBool:
		return "bool"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ParamValue is a scalar provider parameter: a number, a string or a boolean.
// Numbers are held in canonical JSON text so integers stay integers on the wire.
type ParamValue struct {
	kind ParamKind
	num  string
	str  string
	b    bool
}

// FloatParam builds a numeric value from a float
func FloatParam(f float64) ParamValue {
	return ParamValue{kind: ParamNumber, num: strconv.FormatFloat(f, 'g', -1, 64)}
}

// IntParam builds a numeric value from an integer
func IntParam(i int64) ParamValue {
	return ParamValue{kind: ParamNumber, num: strconv.FormatInt(i, 10)}
}

// StringParam builds a string value
func StringParam(s string) ParamValue {
	return ParamValue{kind: ParamString, str: s}
}

// BoolParam builds a boolean value
func BoolParam(b bool) ParamValue {
	return ParamValue{kind: ParamBool, b: b}
}

// Kind returns the variant tag
func (v ParamValue) Kind() ParamKind { return v.kind }

// Float returns the numeric value; ok is false for other variants
func (v ParamValue) Float() (float64, bool) {
	if v.kind != ParamNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.num, 64)
	return f, err == nil
}

// String returns the value as text, used for logging
func (v ParamValue) String() string {
	switch v.kind {
	case ParamNumber:
		return v.num
	case ParamBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Any returns the value as a plain Go value for JSON encoders
func (v ParamValue) Any() any {
	switch v.kind {
	case ParamNumber:
		return json.Number(v.num)
	case ParamBool:
		return v.b
	default:
		return v.str
	}
}

// MarshalJSON encodes the value in its natural JSON form
func (v ParamValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ParamNumber:
		return []byte(v.num), nil
	case ParamBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalYAML accepts only scalar nodes; null, sequences and mappings are rejected
func (v *ParamValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter must be a scalar (number, string or bool)", node.Line)
	}

	switch node.ShortTag() {
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			*v = IntParam(i)
			break
		}
		fallthrough
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("line %d: parameter must be a finite number", node.Line)
		}
		*v = FloatParam(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = BoolParam(b)
	case "!!str":
		*v = StringParam(node.Value)
	default:
		return fmt.Errorf("line %d: unsupported parameter value %q (%s)", node.Line, node.Value, node.ShortTag())
	}
	return nil
}

// Param is one ordered key/value entry
type Param struct {
	Key   string
	Value ParamValue
}

// Params is an ordered mapping of provider parameters, passed through opaquely
type Params []Param

// Get returns the value for key
func (p Params) Get(key string) (ParamValue, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return ParamValue{}, false
}

// Keys returns the keys in document order
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, kv := range p {
		keys[i] = kv.Key
	}
	return keys
}

// Clone returns an independent copy
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// MarshalJSON encodes the parameters as a JSON object preserving order
func (p Params) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, kv := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		val, err := kv.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// UnmarshalYAML decodes a mapping node preserving key order
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		*p = Params{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", node.Line)
	}

	out := make(Params, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, dup := seen[key]; dup {
			return fmt.Errorf("line %d: duplicate parameter %q", node.Content[i].Line, key)
		}
		seen[key] = struct{}{}

		var val ParamValue
		if err := val.UnmarshalYAML(node.Content[i+1]); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		out = append(out, Param{Key: key, Value: val})
	}
	*p = out
	return nil
}
