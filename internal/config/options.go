package config

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options is a free-form bag of per-input knobs decoded from JSON.
// Getters never fail: a missing or mistyped value yields the default.
type Options map[string]any

// Any returns the raw value for key.
func (o Options) Any(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[key]
	return v, ok
}

// Bool reads a boolean; the strings "true"/"false"/"1"/"0" are accepted.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.Any(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	case float64:
		return t != 0
	}
	return def
}

// Int reads an integer. JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	v, ok := o.Any(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// String reads a string.
func (o Options) String(key, def string) string {
	v, ok := o.Any(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Rune reads a single-character string. "\t" and "tab" both mean TAB.
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	switch strings.ToLower(s) {
	case "":
		return def
	case `\t`, "tab":
		return '\t'
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return def
	}
	return r
}

// StringMap reads an object of string values; non-string values are skipped.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o.Any(key)
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, x := range raw {
		if s, ok := x.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Strings reads a list of strings. A single string is split on commas.
func (o Options) Strings(key string) []string {
	v, ok := o.Any(key)
	if !ok {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		out = append(out, t...)
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
