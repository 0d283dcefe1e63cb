// Package config resolves rp-preproc settings from CLI arguments, RP_*
// environment variables and a JSON or YAML config document.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrConfig marks a configuration that cannot drive a run: a missing or
// unreadable config file, or a required setting left empty.
var ErrConfig = errors.New("config: invalid configuration")

// Source names one place a setting can come from.
type Source string

const (
	SourceConfig Source = "config"
	SourceEnv    Source = "env"
	SourceCLI    Source = "cli"
)

// DefaultPrecedence lists sources from weakest to strongest. The last source
// holding a non-nil value wins, so CLI beats env, and env beats the file.
var DefaultPrecedence = []Source{SourceConfig, SourceEnv, SourceCLI}

// Resolver looks settings up across the CLI map, the environment and the
// config document.
type Resolver struct {
	cli       map[string]any
	doc       map[string]any
	lookupEnv func(string) (string, bool)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// NewResolver builds a resolver over cli and doc. Either may be nil.
func NewResolver(cli, doc map[string]any, opts ...ResolverOption) *Resolver {
	r := &Resolver{cli: cli, doc: doc, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resolveConfig struct {
	section    map[string]any
	hasSection bool
	precedence []Source
	fallback   any
}

// ResolveOption tunes a single lookup.
type ResolveOption func(*resolveConfig)

// InSection looks the key up in section instead of the whole document. A nil
// section, a document without that section, falls back to the whole document.
func InSection(section map[string]any) ResolveOption {
	return func(c *resolveConfig) {
		if section == nil {
			return
		}
		c.section = section
		c.hasSection = true
	}
}

// WithPrecedence overrides DefaultPrecedence for one lookup.
func WithPrecedence(sources ...Source) ResolveOption {
	return func(c *resolveConfig) { c.precedence = sources }
}

// WithDefault sets the value returned when no source has the key.
func WithDefault(v any) ResolveOption {
	return func(c *resolveConfig) { c.fallback = v }
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	return "RP_" + strings.ToUpper(key)
}

// Resolve returns the value of key. Missing keys yield the default, nil
// unless WithDefault was given.
func (r *Resolver) Resolve(key string, opts ...ResolveOption) any {
	c := resolveConfig{precedence: DefaultPrecedence}
	for _, opt := range opts {
		opt(&c)
	}
	section := r.doc
	if c.hasSection {
		section = c.section
	}

	value := c.fallback
	for _, src := range c.precedence {
		if v := r.lookup(src, key, section); v != nil {
			value = v
		}
	}
	return value
}

func (r *Resolver) lookup(src Source, key string, section map[string]any) any {
	switch src {
	case SourceCLI:
		if v, ok := r.cli[key]; ok {
			return v
		}
	case SourceEnv:
		if v, ok := r.lookupEnv(EnvName(key)); ok {
			return v
		}
	case SourceConfig:
		if v, ok := section[key]; ok {
			return v
		}
	}
	return nil
}

// Section returns the named top-level object of the document, or nil.
func (r *Resolver) Section(name string) map[string]any {
	return subMap(r.doc, name)
}

// String resolves key and renders it as text.
func (r *Resolver) String(key string, opts ...ResolveOption) string {
	return asString(r.Resolve(key, opts...))
}

// Bool resolves key as a boolean. Strings are read with strconv.ParseBool and
// anything unparseable is false.
func (r *Resolver) Bool(key string, opts ...ResolveOption) bool {
	return asBool(r.Resolve(key, opts...))
}

// Strings resolves key as a list. A comma separated string is split.
func (r *Resolver) Strings(key string, opts ...ResolveOption) []string {
	return asStrings(r.Resolve(key, opts...))
}

func subMap(m map[string]any, name string) map[string]any {
	if m == nil {
		return nil
	}
	switch v := m[name].(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case int:
		return t != 0
	case float64:
		return t != 0
	}
	return false
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, asString(item))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{asString(v)}
}
