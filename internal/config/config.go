// Package config layers environment-variable overrides on top of a
// gamedef.Definition's code-level defaults, the way the tienlen Nakama
// port reads runtime.RUNTIME_CTX_ENV for its bot-delay knobs.
package config

import (
	"context"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Env reads Nakama's runtime environment map out of ctx, returning nil if
// absent (e.g. in unit tests that don't populate RUNTIME_CTX_ENV).
func Env(ctx context.Context) map[string]string {
	v := ctx.Value(runtime.RUNTIME_CTX_ENV)
	if v == nil {
		return nil
	}
	env, _ := v.(map[string]string)
	return env
}

// Int reads key from env, falling back to def on a missing or
// unparseable value.
func Int(env map[string]string, key string, def int) int {
	v, ok := env[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float reads key from env as a float64, falling back to def.
func Float(env map[string]string, key string, def float64) float64 {
	v, ok := env[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool reads key from env as a boolean ("true"/"false"), falling back to
// def.
func Bool(env map[string]string, key string, def bool) bool {
	v, ok := env[key]
	if !ok {
		return def
	}
	return v == "true"
}

// String reads key from env, falling back to def.
func String(env map[string]string, key, def string) string {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	return v
}
