// Package options declares and resolves typed configuration for a
// preparation run. A Schema lists every option a component accepts with its
// kind, default, and domain; Resolve casts and validates raw values into an
// immutable Config. The Config doubles as the rebuild fingerprint: two runs
// are equivalent iff their resolved Configs are equal.
package options

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind enumerates the value types an option can declare.
type Kind int

const (
	String Kind = iota
	Dir         // string naming an existing directory
	Float
	Int
	Bool
	Enum       // string restricted to Values
	EnumList   // comma-separated strings, each restricted to Values
	IntList    // comma-separated ints, each within [Min, Max]
	StringList // comma-separated strings
)

// Unbounded marks an IntList option with no upper limit.
const Unbounded = math.MaxInt

// Option declares a single configuration option.
type Option struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any      // used when the option is absent and not required
	Values   []string // Enum and EnumList domain
	Min, Max int      // IntList element bounds
}

// Schema is an ordered list of option declarations. Declaration order is the
// canonical order used for fingerprinting.
type Schema []Option

// ResolveError reports a configuration problem for a single option.
type ResolveError struct {
	Option string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("option %q: %s", e.Option, e.Reason)
}

// Config is an ordered, immutable mapping of option name to resolved value.
type Config struct {
	names  []string
	values map[string]any
}

// Resolve checks raw values against the schema, applies defaults, and casts
// each value to its declared kind. Unknown keys, missing mandatory options,
// and values outside a declared domain are ResolveErrors.
func Resolve(schema Schema, raw map[string]any) (Config, error) {
	declared := make(map[string]bool, len(schema))
	for _, opt := range schema {
		declared[opt.Name] = true
	}
	for name := range raw {
		if !declared[name] {
			return Config{}, &ResolveError{Option: name, Reason: "not a declared option"}
		}
	}

	cfg := Config{values: make(map[string]any, len(schema))}
	for _, opt := range schema {
		v, ok := raw[opt.Name]
		if !ok || v == nil || v == "" {
			if opt.Required {
				return Config{}, &ResolveError{Option: opt.Name, Reason: "mandatory option is missing"}
			}
			v = opt.Default
		}
		cast, err := castValue(opt, v)
		if err != nil {
			return Config{}, err
		}
		cfg.names = append(cfg.names, opt.Name)
		cfg.values[opt.Name] = cast
	}
	return cfg, nil
}

func castValue(opt Option, v any) (any, error) {
	if v == nil {
		return zeroValue(opt.Kind), nil
	}
	switch opt.Kind {
	case String:
		return toString(opt, v)
	case Dir:
		s, err := toString(opt, v)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return s, nil
		}
		info, statErr := os.Stat(s)
		if statErr != nil || !info.IsDir() {
			return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%s is not an existing directory", s)}
		}
		return s, nil
	case Float:
		return toFloat(opt, v)
	case Int:
		return toInt(opt, v)
	case Bool:
		return toBool(opt, v)
	case Enum:
		s, err := toString(opt, v)
		if err != nil {
			return nil, err
		}
		if !contains(opt.Values, s) {
			return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not one of %s", s, strings.Join(opt.Values, ","))}
		}
		return s, nil
	case EnumList:
		list, err := toStringList(opt, v)
		if err != nil {
			return nil, err
		}
		for _, s := range list {
			if !contains(opt.Values, s) {
				return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not one of %s", s, strings.Join(opt.Values, ","))}
			}
		}
		return list, nil
	case IntList:
		list, err := toIntList(opt, v)
		if err != nil {
			return nil, err
		}
		for _, n := range list {
			if n < opt.Min || (opt.Max != 0 && opt.Max != Unbounded && n > opt.Max) {
				return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%d is outside [%d, %d]", n, opt.Min, opt.Max)}
			}
		}
		return list, nil
	case StringList:
		return toStringList(opt, v)
	default:
		return nil, &ResolveError{Option: opt.Name, Reason: "unknown option kind"}
	}
}

func zeroValue(k Kind) any {
	switch k {
	case Float:
		return float64(0)
	case Int:
		return 0
	case Bool:
		return false
	case EnumList, StringList:
		return []string(nil)
	case IntList:
		return []int(nil)
	default:
		return ""
	}
}

func toString(opt Option, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}
	return s, nil
}

func toFloat(opt Option, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not a number", n)}
		}
		return f, nil
	}
	return 0, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected a number, got %T", v)}
}

func toInt(opt Option, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not an integer", n)}
		}
		return i, nil
	}
	return 0, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected an integer, got %T", v)}
}

func toBool(opt Option, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not a boolean", b)}
		}
		return parsed, nil
	}
	return false, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected a boolean, got %T", v)}
}

func toStringList(opt Option, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case string:
		if list == "" {
			return nil, nil
		}
		parts := strings.Split(list, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		return parts, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected string elements, got %T", item)}
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected a string list, got %T", v)}
}

func toIntList(opt Option, v any) ([]int, error) {
	switch list := v.(type) {
	case []int:
		return list, nil
	case string:
		if list == "" {
			return nil, nil
		}
		var out []int
		for _, p := range strings.Split(list, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("%q is not an integer", p)}
			}
			out = append(out, n)
		}
		return out, nil
	case []any:
		var out []int
		for _, item := range list {
			n, err := toInt(opt, item)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, &ResolveError{Option: opt.Name, Reason: fmt.Sprintf("expected an integer list, got %T", v)}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the resolved string value for name. Resolved configs hold
// every declared option, so a missing name yields the zero value.
func (c Config) String(name string) string {
	s, _ := c.values[name].(string)
	return s
}

// Float returns the resolved float value for name.
func (c Config) Float(name string) float64 {
	f, _ := c.values[name].(float64)
	return f
}

// Int returns the resolved int value for name.
func (c Config) Int(name string) int {
	n, _ := c.values[name].(int)
	return n
}

// Bool returns the resolved bool value for name.
func (c Config) Bool(name string) bool {
	b, _ := c.values[name].(bool)
	return b
}

// Strings returns the resolved string list for name.
func (c Config) Strings(name string) []string {
	l, _ := c.values[name].([]string)
	return l
}

// Ints returns the resolved int list for name.
func (c Config) Ints(name string) []int {
	l, _ := c.values[name].([]int)
	return l
}

// Names returns the option names in schema order.
func (c Config) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Equal reports structural equality over the full resolved mapping. Every
// declared option participates, including ones irrelevant to output.
func (c Config) Equal(other Config) bool {
	a, errA := c.Snapshot()
	b, errB := other.Snapshot()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

// Snapshot serializes the config as canonical YAML: options in schema order,
// one mapping entry per option. Used for fingerprint persistence and
// comparison.
func (c Config) Snapshot() ([]byte, error) {
	return yaml.Marshal(c)
}

// MarshalYAML emits the options as an ordered mapping node.
func (c Config) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range c.names {
		var key, val yaml.Node
		key.SetString(name)
		if err := val.Encode(c.values[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &key, &val)
	}
	return node, nil
}
