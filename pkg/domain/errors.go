package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when a world is used before Configure.
	ErrNotConfigured = errors.New("simulation world is not configured")
	// ErrNotInitialized is returned when a world is stepped before Initialize.
	ErrNotInitialized = errors.New("simulation world is not initialized")
)

// FieldError describes one rejected configuration value.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Reason)
}

// ConfigError aggregates every invalid field found during validation.
type ConfigError struct {
	Problems []FieldError
}

// Add records a rejected field.
func (e *ConfigError) Add(field string, value any, reason string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Value: value, Reason: reason})
}

// Merge appends problems from another validation error. Errors that are not
// ConfigErrors are recorded under the "general" field.
func (e *ConfigError) Merge(err error) {
	if err == nil {
		return
	}
	var other *ConfigError
	if errors.As(err, &other) {
		e.Problems = append(e.Problems, other.Problems...)
		return
	}
	e.Add("general", nil, err.Error())
}

// OrNil returns e as an error when it holds problems, or nil otherwise.
func (e *ConfigError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	out := &ConfigError{Problems: append([]FieldError(nil), e.Problems...)}
	return out
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Has reports whether field was rejected.
func (e *ConfigError) Has(field string) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

// TransitionConflictError is returned when a rule asks to move an agent out of
// a category it is not in.
type TransitionConflictError struct {
	Transition Transition
	Actual     Category
}

func (e TransitionConflictError) Error() string {
	return fmt.Sprintf("rule %s moved agent %d from %s but it is in %s",
		e.Transition.Rule, e.Transition.AgentID, e.Transition.From, e.Actual)
}
