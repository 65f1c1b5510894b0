package perception

import (
	"testing"
	"time"
)

func TestAlertMachine_EscalatesImmediately(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tr, ok := m.Observe("ME-4501", SeverityCritical, 0.8, at)
	if !ok {
		t.Fatal("Expected a transition on first critical reading")
	}
	if tr.From != SeverityNormal || tr.To != SeverityCritical {
		t.Errorf("Expected NORMAL->CRITICAL, got %s->%s", tr.From, tr.To)
	}
	if m.State("ME-4501") != SeverityCritical {
		t.Errorf("Expected CRITICAL state, got %s", m.State("ME-4501"))
	}
}

func TestAlertMachine_SameSeverityNoTransition(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityWarning, 0.55, at)
	if _, ok := m.Observe("ME-4501", SeverityWarning, 0.56, at); ok {
		t.Error("Repeated severity must not transition")
	}
	if len(m.History("ME-4501")) != 1 {
		t.Errorf("Expected 1 transition in history, got %d", len(m.History("ME-4501")))
	}
}

func TestAlertMachine_HysteresisOnDeescalation(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityCritical, 0.8, at)

	// Two quiet readings: not enough to step down.
	if _, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at); ok {
		t.Error("Stepped down after 1 lower reading")
	}
	if _, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at); ok {
		t.Error("Stepped down after 2 lower readings")
	}
	if m.State("ME-4501") != SeverityCritical {
		t.Errorf("Expected CRITICAL held, got %s", m.State("ME-4501"))
	}

	// Third consecutive quiet reading completes the run.
	tr, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at)
	if !ok {
		t.Fatal("Expected transition after 3 lower readings")
	}
	if tr.From != SeverityCritical || tr.To != SeverityNormal {
		t.Errorf("Expected CRITICAL->NORMAL, got %s->%s", tr.From, tr.To)
	}
}

func TestAlertMachine_HigherReadingResetsRun(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityCritical, 0.8, at)
	m.Observe("ME-4501", SeverityNormal, 0.2, at)
	m.Observe("ME-4501", SeverityNormal, 0.2, at)

	// A reading back at the current severity resets the below-run.
	m.Observe("ME-4501", SeverityCritical, 0.8, at)

	if _, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at); ok {
		t.Error("Run should have been reset by the critical reading")
	}
	if _, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at); ok {
		t.Error("Run should still be short of the threshold")
	}
	if _, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at); !ok {
		t.Error("Expected transition after a full fresh run")
	}
}

func TestAlertMachine_StepsDownToMaxOfRun(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityCritical, 0.8, at)

	// The below-run contains a WARNING: the machine must not skip past it
	// to NORMAL in one transition.
	m.Observe("ME-4501", SeverityWarning, 0.55, at)
	m.Observe("ME-4501", SeverityNormal, 0.2, at)
	tr, ok := m.Observe("ME-4501", SeverityNormal, 0.2, at)
	if !ok {
		t.Fatal("Expected transition after 3 lower readings")
	}
	if tr.To != SeverityWarning {
		t.Errorf("Expected step down to WARNING (max of run), got %s", tr.To)
	}
	if m.State("ME-4501") != SeverityWarning {
		t.Errorf("Expected WARNING state, got %s", m.State("ME-4501"))
	}
}

func TestAlertMachine_ComponentsIndependent(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityCritical, 0.8, at)
	if m.State("AE-0902") != SeverityNormal {
		t.Errorf("Other component must stay NORMAL, got %s", m.State("AE-0902"))
	}
}

func TestAlertMachine_Reset(t *testing.T) {
	m := NewAlertMachine(3)
	at := time.Now()

	m.Observe("ME-4501", SeverityCritical, 0.8, at)
	m.Reset()

	if m.State("ME-4501") != SeverityNormal {
		t.Errorf("Expected NORMAL after reset, got %s", m.State("ME-4501"))
	}
	if len(m.History("ME-4501")) != 0 {
		t.Error("Expected empty history after reset")
	}
}
