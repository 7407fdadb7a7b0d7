package compiler

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an operation is not legal in the
// compiler's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is a compiler state.
type State uint8

const (
	StateStart State = iota
	StateIntentParsed
	StateGraphCreated
	StateValidation
	StateNeedsInput
	StateGraphComplete
	StateYAMLRendered
)

var stateNames = [...]string{
	StateStart:         "start",
	StateIntentParsed:  "intent_parsed",
	StateGraphCreated:  "graph_created",
	StateValidation:    "validation",
	StateNeedsInput:    "needs_input",
	StateGraphComplete: "graph_complete",
	StateYAMLRendered:  "yaml_rendered",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// ParseState maps a state name back to a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateStart, fmt.Errorf("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// transitions is the complete edge set of the state machine.
var transitions = map[State][]State{
	StateStart:         {StateIntentParsed},
	StateIntentParsed:  {StateGraphCreated},
	StateGraphCreated:  {StateValidation},
	StateValidation:    {StateNeedsInput, StateGraphComplete},
	StateNeedsInput:    {StateValidation, StateNeedsInput, StateGraphCreated},
	StateGraphComplete: {StateYAMLRendered},
	StateYAMLRendered:  {StateGraphCreated},
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Accepting reports whether the compiler waits for external input in s.
func (s State) Accepting() bool {
	return s == StateStart || s == StateNeedsInput || s == StateYAMLRendered
}
