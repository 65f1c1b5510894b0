package perception

import (
	"sync"
	"time"
)

// DefaultClearAfter is the number of consecutive lower-severity readings
// required before the alert state may step down.
const DefaultClearAfter = 3

const maxTransitionHistory = 128

// Transition records an alert severity change for a component.
type Transition struct {
	Component string    `json:"component"`
	From      Severity  `json:"from"`
	To        Severity  `json:"to"`
	Score     float64   `json:"score"`
	At        time.Time `json:"at"`
}

// AlertMachine tracks per-component alert severity over time. Escalation is
// immediate: a single reading crossing a higher threshold transitions up.
// De-escalation is damped by hysteresis: it takes clearAfter consecutive
// readings below the current severity before the state steps down, which
// suppresses flapping on noisy boundary scores. Initial state is NORMAL and
// there is no terminal state.
type AlertMachine struct {
	mu         sync.Mutex
	clearAfter int
	states     map[string]*alertState
}

type alertState struct {
	current    Severity
	belowCount int
	belowMax   Severity // highest severity seen during the current below-run
	history    []Transition
}

// NewAlertMachine creates an alert machine requiring clearAfter consecutive
// lower readings before a downward transition.
func NewAlertMachine(clearAfter int) *AlertMachine {
	if clearAfter <= 0 {
		clearAfter = DefaultClearAfter
	}
	return &AlertMachine{
		clearAfter: clearAfter,
		states:     make(map[string]*alertState),
	}
}

// Observe feeds one classified reading into the machine and returns the
// transition it caused, if any.
func (m *AlertMachine) Observe(component string, sev Severity, score float64, at time.Time) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[component]
	if !ok {
		st = &alertState{current: SeverityNormal}
		m.states[component] = st
	}

	cur := severityRank(st.current)
	obs := severityRank(sev)

	switch {
	case obs > cur:
		// Higher severity wins immediately.
		st.belowCount = 0
		return m.transition(component, st, sev, score, at), true

	case obs == cur:
		st.belowCount = 0
		return Transition{}, false

	default:
		if st.belowCount == 0 || severityRank(sev) > severityRank(st.belowMax) {
			st.belowMax = sev
		}
		st.belowCount++
		if st.belowCount < m.clearAfter {
			return Transition{}, false
		}
		st.belowCount = 0
		return m.transition(component, st, st.belowMax, score, at), true
	}
}

func (m *AlertMachine) transition(component string, st *alertState, to Severity, score float64, at time.Time) Transition {
	t := Transition{
		Component: component,
		From:      st.current,
		To:        to,
		Score:     score,
		At:        at,
	}
	st.current = to
	st.history = append(st.history, t)
	if len(st.history) > maxTransitionHistory {
		st.history = st.history[len(st.history)-maxTransitionHistory:]
	}
	return t
}

// State returns the current severity for a component. Unknown components
// are NORMAL.
func (m *AlertMachine) State(component string) Severity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[component]; ok {
		return st.current
	}
	return SeverityNormal
}

// History returns a copy of the recorded transitions for a component,
// oldest first.
func (m *AlertMachine) History(component string) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[component]
	if !ok {
		return nil
	}
	out := make([]Transition, len(st.history))
	copy(out, st.history)
	return out
}

// Reset clears all component states. Called on retrain.
func (m *AlertMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]*alertState)
}
