// Package featureflag defines the flag collaborator consulted by the
// engine before handing out a working component.
package featureflag

import (
	"os"
	"strconv"
	"strings"
)

// Flags reports whether a feature is on for a user. userID may be empty.
type Flags interface {
	IsEnabled(name, userID string) bool
}

// FlagsFunc adapts a function to Flags.
type FlagsFunc func(name, userID string) bool

// IsEnabled calls f.
func (f FlagsFunc) IsEnabled(name, userID string) bool { return f(name, userID) }

// Static answers from a fixed map. Missing names are off.
type Static map[string]bool

// IsEnabled reports s[name] for every user.
func (s Static) IsEnabled(name, _ string) bool { return s[name] }

// Always returns Flags that answer enabled for every name and user.
func Always(enabled bool) Flags {
	return FlagsFunc(func(string, string) bool { return enabled })
}

// Env reads flags from environment variables. The flag "conveyor-queue"
// with prefix "CONVEYOR_FLAG_" is read from CONVEYOR_FLAG_CONVEYOR_QUEUE.
// Unset or unparsable values are off. Values are read on every call.
type Env struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnv returns Env flags with the given prefix.
func NewEnv(prefix string) *Env {
	return &Env{Prefix: prefix, lookup: os.LookupEnv}
}

// IsEnabled implements Flags.
func (e *Env) IsEnabled(name, _ string) bool {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(e.Key(name))
	if !ok {
		return false
	}
	on, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && on
}

// Key returns the environment variable consulted for name.
func (e *Env) Key(name string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
	return e.Prefix + key
}
