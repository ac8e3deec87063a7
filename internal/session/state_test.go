package session

import "testing"

func TestStateTransitionTable(t *testing.T) {
	all := []State{StateDisconnected, StateConnecting, StateOpen, StateClosing, StateFailed}
	allowed := map[[2]State]bool{
		{StateDisconnected, StateConnecting}: true,
		{StateConnecting, StateOpen}:         true,
		{StateConnecting, StateFailed}:       true,
		{StateOpen, StateClosing}:            true,
		{StateClosing, StateDisconnected}:    true,
		{StateFailed, StateDisconnected}:     true,
	}
	for _, from := range all {
		for _, to := range all {
			if got := from.CanTransition(to); got != allowed[[2]State{from, to}] {
				t.Fatalf("%s -> %s allowed=%v", from, to, got)
			}
		}
	}
}

func TestTransitionLockedRefusesSkippedStates(t *testing.T) {
	m := &Manager{state: StateDisconnected}
	m.transitionLocked(StateOpen)
	if m.state != StateDisconnected {
		t.Fatalf("disconnected -> open must be refused, got %s", m.state)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{ConnectTimeout: -1}.WithDefaults()
	if cfg.Location != "session_auth_info" {
		t.Fatalf("unexpected location: %q", cfg.Location)
	}
	if cfg.ConnectTimeout != DefaultConfig().ConnectTimeout {
		t.Fatalf("unexpected timeout: %v", cfg.ConnectTimeout)
	}
	if got := (Config{}).WithDefaults().ConnectTimeout; got != 0 {
		t.Fatalf("zero timeout must stay disabled, got %v", got)
	}
}
