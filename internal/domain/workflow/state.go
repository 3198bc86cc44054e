package workflow

// State represents a claim status in the approval lifecycle
type State string

const (
	StateDraft           State = "DRAFT"
	StatePendingManager  State = "PENDING_MANAGER"
	StatePendingHR       State = "PENDING_HR"
	StatePendingFinance  State = "PENDING_FINANCE"
	StateFinanceApproved State = "FINANCE_APPROVED"
	StateSettled         State = "SETTLED"
	StateRejected        State = "REJECTED"
	StateReturned        State = "RETURNED_TO_EMPLOYEE"
)

var validStates = map[State]bool{
	StateDraft:           true,
	StatePendingManager:  true,
	StatePendingHR:       true,
	StatePendingFinance:  true,
	StateFinanceApproved: true,
	StateSettled:         true,
	StateRejected:        true,
	StateReturned:        true,
}

// Terminal states accept no further review transitions. FINANCE_APPROVED is
// not terminal: the settlement operation still moves it to SETTLED.
var terminalStates = map[State]bool{
	StateSettled:  true,
	StateRejected: true,
}

// AllStates returns every valid state in fixed order for deterministic
// iteration in tests and reports.
func AllStates() []State {
	return []State{
		StateDraft,
		StatePendingManager,
		StatePendingHR,
		StatePendingFinance,
		StateFinanceApproved,
		StateSettled,
		StateRejected,
		StateReturned,
	}
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid claim state
func (s State) IsValid() bool {
	return validStates[s]
}
