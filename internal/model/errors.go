package model

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors below unwrap to one of these so callers can
// classify with errors.Is without caring about the details.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvariant        = errors.New("invariant violation")
)

// InputError reports a malformed interval in an energy series.
type InputError struct {
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("interval %d: %s", e.Index, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ConfigError reports a degenerate configuration value, rejected before any
// simulation starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// InvariantError is fatal for a simulation run. It means a policy or the
// battery model returned something physically impossible.
type InvariantError struct {
	Index       int
	CapacityKWh float64
	Reason      string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("interval %d (capacity %.4f kWh): %s", e.Index, e.CapacityKWh, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
