package agent

import (
	"errors"
	"fmt"
)

// Common sentinel errors for agent operations
var (
	// ErrNoProvider indicates no reasoning provider is configured
	ErrNoProvider = errors.New("no provider configured")

	// ErrMaxRounds indicates the agent loop exceeded its round limit
	ErrMaxRounds = errors.New("max rounds exceeded")

	// ErrToolNotFound indicates a requested tool doesn't exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrEmptyInput indicates Ask was called with blank input
	ErrEmptyInput = errors.New("empty input")
)

// RoundPhase identifies where in a round a fatal error occurred.
type RoundPhase string

const (
	// PhaseStream covers the provider call and event assembly.
	PhaseStream RoundPhase = "stream"

	// PhaseTranslate covers snapshot-to-message conversion.
	PhaseTranslate RoundPhase = "translate"

	// PhaseExecuteTools covers running a step's pending tool calls.
	PhaseExecuteTools RoundPhase = "execute_tools"
)

// RoundError wraps a fatal error from one loop round with enough context
// to tell which round and phase failed. Tool failures never become
// RoundErrors; they are fed back to the provider as failed results.
type RoundError struct {
	// Round is the 1-based round number within the Ask call.
	Round int

	// Phase is where in the round the error occurred.
	Phase RoundPhase

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d (%s): %v", e.Round, e.Phase, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *RoundError) Unwrap() error {
	return e.Cause
}
