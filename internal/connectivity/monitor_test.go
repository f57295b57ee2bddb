package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recvEdge(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connectivity edge")
		return false
	}
}

func assertNoEdge(t *testing.T, ch <-chan bool) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected edge delivery: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitorInitialState(t *testing.T) {
	if m := NewMonitor(true, false); !m.Current() {
		t.Fatal("expected online")
	}
	if m := NewMonitor(false, false); m.Current() {
		t.Fatal("expected offline")
	}
}

func TestMonitorDeliversEachEdgeOnce(t *testing.T) {
	m := NewMonitor(true, false)
	events, cancel := m.Subscribe()
	defer cancel()

	m.SetOnline(false)
	if recvEdge(t, events) {
		t.Fatal("expected offline edge")
	}

	m.SetOnline(true)
	if !recvEdge(t, events) {
		t.Fatal("expected online edge")
	}

	assertNoEdge(t, events)
}

func TestMonitorIgnoresUnchangedState(t *testing.T) {
	m := NewMonitor(true, false)
	events, cancel := m.Subscribe()
	defer cancel()

	m.SetOnline(true)
	m.SetOnline(true)
	assertNoEdge(t, events)

	m.SetOnline(false)
	if recvEdge(t, events) {
		t.Fatal("expected offline edge")
	}
	m.SetOnline(false)
	assertNoEdge(t, events)
}

func TestMonitorMultipleSubscribers(t *testing.T) {
	m := NewMonitor(true, false)
	a, cancelA := m.Subscribe()
	defer cancelA()
	b, cancelB := m.Subscribe()
	defer cancelB()

	m.SetOnline(false)
	if recvEdge(t, a) || recvEdge(t, b) {
		t.Fatal("both subscribers should see the offline edge")
	}
}

func TestMonitorUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMonitor(true, false)
	events, cancel := m.Subscribe()
	cancel()

	m.SetOnline(false)
	assertNoEdge(t, events)
}

func TestMonitorForceRequiresOverride(t *testing.T) {
	m := NewMonitor(true, false)
	if err := m.Force(false); !errors.Is(err, ErrOverrideDisabled) {
		t.Fatalf("expected ErrOverrideDisabled, got %v", err)
	}
	if err := m.Release(); !errors.Is(err, ErrOverrideDisabled) {
		t.Fatalf("expected ErrOverrideDisabled, got %v", err)
	}
	if !m.Current() {
		t.Fatal("state must be untouched by a rejected override")
	}
}

func TestMonitorForcePinsState(t *testing.T) {
	m := NewMonitor(true, true)
	events, cancel := m.Subscribe()
	defer cancel()

	if err := m.Force(false); err != nil {
		t.Fatalf("force: %v", err)
	}
	if recvEdge(t, events) {
		t.Fatal("expected forced offline edge")
	}

	// Host signals are ignored while forced.
	m.SetOnline(true)
	if m.Current() {
		t.Fatal("host signal overrode a forced state")
	}
	assertNoEdge(t, events)

	if err := m.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	m.SetOnline(true)
	if !recvEdge(t, events) {
		t.Fatal("expected online edge after release")
	}
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestProbeOnce(t *testing.T) {
	if !ProbeOnce(&fakePinger{}) {
		t.Fatal("reachable pinger must report online")
	}
	if ProbeOnce(&fakePinger{err: errors.New("unreachable")}) {
		t.Fatal("failing pinger must report offline")
	}
}
