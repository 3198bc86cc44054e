package workflow

import "fmt"

// MachineBuilder builds a configured transition table
type MachineBuilder struct {
	configurations map[State]*stateConfig
}

// StateConfiguration configures transitions out of a specific state
type StateConfiguration struct {
	builder *MachineBuilder
	config  *stateConfig
}

// NewBuilder creates a new machine builder
func NewBuilder() *MachineBuilder {
	return &MachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *MachineBuilder) Configure(state State) *StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState: state,
			rules:     make(map[Role][]rule),
		}
		b.configurations[state] = config
	}

	return &StateConfiguration{builder: b, config: config}
}

// Permit allows the role to transition to the target state
func (c *StateConfiguration) Permit(role Role, to State) *StateConfiguration {
	return c.permit(role, to, false)
}

// PermitWithComment allows the transition only when a non-empty comment
// accompanies the request
func (c *StateConfiguration) PermitWithComment(role Role, to State) *StateConfiguration {
	return c.permit(role, to, true)
}

func (c *StateConfiguration) permit(role Role, to State, requiresComment bool) *StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	if !role.IsValid() {
		panic(fmt.Sprintf("invalid role: %s", role))
	}
	if to == c.config.fromState {
		panic(fmt.Sprintf("self transition not allowed: %s", to))
	}

	c.config.rules[role] = append(c.config.rules[role], rule{
		to:              to,
		requiresComment: requiresComment,
	})

	return c
}

// Build creates an immutable machine from the configured table
func (b *MachineBuilder) Build() *Machine {
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		rulesCopy := make(map[Role][]rule, len(config.rules))
		for role, rules := range config.rules {
			rulesCopy[role] = append([]rule{}, rules...)
		}
		configsCopy[state] = &stateConfig{
			fromState: state,
			rules:     rulesCopy,
		}
	}

	return &Machine{configurations: configsCopy}
}

// NewClaimMachine builds the claim approval transition table:
//
//	employee:  DRAFT -> PENDING_MANAGER, RETURNED_TO_EMPLOYEE -> PENDING_MANAGER
//	manager:   PENDING_MANAGER -> PENDING_HR | REJECTED | RETURNED_TO_EMPLOYEE
//	hr:        PENDING_HR -> PENDING_FINANCE | REJECTED | RETURNED_TO_EMPLOYEE
//	finance:   PENDING_FINANCE -> FINANCE_APPROVED | REJECTED | RETURNED_TO_EMPLOYEE
//	           FINANCE_APPROVED -> SETTLED
//	system:    auto-approval advances and settlement, gated by the lifecycle
//	           manager's threshold checks
//
// Reject and return always require a comment.
func NewClaimMachine() *Machine {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(RoleEmployee, StatePendingManager)

	b.Configure(StateReturned).
		Permit(RoleEmployee, StatePendingManager)

	b.Configure(StatePendingManager).
		Permit(RoleManager, StatePendingHR).
		PermitWithComment(RoleManager, StateRejected).
		PermitWithComment(RoleManager, StateReturned).
		Permit(RoleSystem, StateFinanceApproved)

	b.Configure(StatePendingHR).
		Permit(RoleHR, StatePendingFinance).
		PermitWithComment(RoleHR, StateRejected).
		PermitWithComment(RoleHR, StateReturned).
		Permit(RoleSystem, StatePendingFinance)

	b.Configure(StatePendingFinance).
		Permit(RoleFinance, StateFinanceApproved).
		PermitWithComment(RoleFinance, StateRejected).
		PermitWithComment(RoleFinance, StateReturned).
		Permit(RoleSystem, StateFinanceApproved)

	b.Configure(StateFinanceApproved).
		Permit(RoleFinance, StateSettled).
		Permit(RoleSystem, StateSettled)

	return b.Build()
}
