package orchestrator

import "github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"

// State is where a user action currently is
type State string

const (
	StateIdle       State = "idle"
	StatePricing    State = "pricing"
	StateApproving  State = "approving"
	StateSubmitting State = "submitting"
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed-out"
)

// IsTerminal reports whether the action has finished
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// Transition is reported to the state hook on every state change
type Transition struct {
	From   State
	To     State
	Record *types.TransactionRecord // set once a transaction was broadcast
	Err    error                    // set for failed and timed-out
}
