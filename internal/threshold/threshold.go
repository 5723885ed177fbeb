// Package threshold decides whether a product should carry an active
// low-stock alert. Everything here is pure: no state, no I/O.
package threshold

// State is the derived per-product alerting state. It is never persisted.
type State int

const (
	StateOK State = iota
	StateBelowThreshold
)

func (s State) String() string {
	if s == StateBelowThreshold {
		return "BELOW_THRESHOLD"
	}
	return "OK"
}

// Action is what the alert store must do to keep up with a state change
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionResolve
)

func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionResolve:
		return "resolve"
	default:
		return "none"
	}
}

// ShouldAlert reports whether a product at quantity with the given minimum
// stock level must have an active alert. A quantity equal to the threshold
// counts as low stock.
func ShouldAlert(quantity, minStockLevel int) bool {
	return quantity <= minStockLevel
}

// Evaluate maps quantity and threshold onto the derived state
func Evaluate(quantity, minStockLevel int) State {
	if ShouldAlert(quantity, minStockLevel) {
		return StateBelowThreshold
	}
	return StateOK
}

// Transition returns the alert action implied by moving from before to after
func Transition(before, after State) Action {
	switch {
	case before == StateOK && after == StateBelowThreshold:
		return ActionOpen
	case before == StateBelowThreshold && after == StateOK:
		return ActionResolve
	default:
		return ActionNone
	}
}

// Reconcile compares the desired state with what the alert store holds and
// returns the repair, if any. Unlike Transition it ignores history, so it
// also heals drift left behind by manual tooling.
func Reconcile(shouldAlert, hasActive bool) Action {
	switch {
	case shouldAlert && !hasActive:
		return ActionOpen
	case !shouldAlert && hasActive:
		return ActionResolve
	default:
		return ActionNone
	}
}
