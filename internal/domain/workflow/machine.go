package workflow

import (
	"fmt"
	"strings"
)

// Machine validates claim transitions against a role-gated transition table.
// The machine itself is stateless: callers pass the claim's current status
// on every request, so one shared instance serves all claims.
type Machine struct {
	configurations map[State]*stateConfig
}

// rule is one permitted transition out of a state
type rule struct {
	to              State
	requiresComment bool
}

// stateConfig holds the permitted transitions out of one state, per role
type stateConfig struct {
	fromState State
	rules     map[Role][]rule
}

// CanTransition returns true if role may move a claim from one state to
// another. Comment requirements are not checked here; use Authorize.
func (m *Machine) CanTransition(from State, role Role, to State) bool {
	config, exists := m.configurations[from]
	if !exists {
		return false
	}
	for _, r := range config.rules[role] {
		if r.to == to {
			return true
		}
	}
	return false
}

// Authorize validates a transition request. It returns nil when the
// transition is admissible, ErrInvalidTransition when the (from, to) pair is
// not permitted for the role, and ErrMissingRequiredComment when the
// transition demands a comment and none was supplied.
func (m *Machine) Authorize(from State, role Role, to State, comment string) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, from)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, to)
	}

	config, exists := m.configurations[from]
	if !exists {
		return fmt.Errorf("%w: %s -> %s (role %s)", ErrInvalidTransition, from, to, role)
	}

	for _, r := range config.rules[role] {
		if r.to != to {
			continue
		}
		if r.requiresComment && strings.TrimSpace(comment) == "" {
			return fmt.Errorf("%w: %s -> %s", ErrMissingRequiredComment, from, to)
		}
		return nil
	}

	return fmt.Errorf("%w: %s -> %s (role %s)", ErrInvalidTransition, from, to, role)
}

// PermittedTargets returns all states the role may move a claim to from the
// given state, in table order.
func (m *Machine) PermittedTargets(from State, role Role) []State {
	config, exists := m.configurations[from]
	if !exists {
		return nil
	}

	targets := make([]State, 0, len(config.rules[role]))
	for _, r := range config.rules[role] {
		targets = append(targets, r.to)
	}
	return targets
}
