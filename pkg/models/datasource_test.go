package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSourceKind_Valid(t *testing.T) {
	for _, k := range AllKinds() {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if SourceKind("sqlserver").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
	if SourceKind("").Valid() {
		t.Error("expected empty kind to be invalid")
	}
}

func TestConnectionState_Transitions(t *testing.T) {
	tests := []struct {
		from    ConnectionState
		to      ConnectionState
		allowed bool
	}{
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateError, true},
		{StateConnecting, StateCredentialsRequired, true},
		{StateConnecting, StateDisconnected, false},
		{StateConnected, StateDisconnected, true},
		{StateConnected, StateError, false},
		{StateConnected, StateConnecting, false},
		{StateDisconnected, StateConnecting, true},
		{StateError, StateConnecting, true},
		{StateCredentialsRequired, StateConnecting, true},
		{StateDisconnected, StateConnected, false}, // must pass through connecting
		{StateError, StateConnected, false},
		{StateConnected, StateConnected, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestDataSource_Transition(t *testing.T) {
	ds := &DataSource{
		ID:              uuid.New(),
		State:           StateConnecting,
		ConnectionError: "stale",
	}

	if err := ds.Transition(StateConnected); err != nil {
		t.Fatalf("expected legal transition, got %v", err)
	}
	if ds.State != StateConnected {
		t.Errorf("expected state connected, got %s", ds.State)
	}
	if ds.ConnectionError != "" {
		t.Error("expected connection error cleared on transition")
	}

	if err := ds.Transition(StateConnecting); err == nil {
		t.Error("expected connected -> connecting to be rejected")
	}
}

func TestDataSource_Clone(t *testing.T) {
	at := time.Now()
	ds := &DataSource{ID: uuid.New(), State: StateConnected, AttachedAt: &at}

	cp := ds.Clone()
	cp.State = StateDisconnected
	*cp.AttachedAt = at.Add(-time.Hour)

	if ds.State != StateConnected {
		t.Error("clone mutated original state")
	}
	if !ds.AttachedAt.Equal(at) {
		t.Error("clone shares AttachedAt pointer with original")
	}
}
