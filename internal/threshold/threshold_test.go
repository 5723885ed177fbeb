package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		min      int
		want     bool
	}{
		{"below", 5, 10, true},
		{"equal counts as low", 10, 10, true},
		{"above", 11, 10, false},
		{"zero threshold zero stock", 0, 0, true},
		{"zero threshold some stock", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.quantity, tt.min))
		})
	}
}

func TestEvaluate(t *testing.T) {
	assert.Equal(t, StateBelowThreshold, Evaluate(3, 10))
	assert.Equal(t, StateOK, Evaluate(30, 10))
	assert.Equal(t, "BELOW_THRESHOLD", Evaluate(3, 10).String())
	assert.Equal(t, "OK", Evaluate(30, 10).String())
}

func TestTransition(t *testing.T) {
	assert.Equal(t, ActionOpen, Transition(StateOK, StateBelowThreshold))
	assert.Equal(t, ActionResolve, Transition(StateBelowThreshold, StateOK))
	assert.Equal(t, ActionNone, Transition(StateOK, StateOK))
	assert.Equal(t, ActionNone, Transition(StateBelowThreshold, StateBelowThreshold))
}

func TestReconcile(t *testing.T) {
	assert.Equal(t, ActionOpen, Reconcile(true, false))
	assert.Equal(t, ActionResolve, Reconcile(false, true))
	assert.Equal(t, ActionNone, Reconcile(true, true))
	assert.Equal(t, ActionNone, Reconcile(false, false))
}
