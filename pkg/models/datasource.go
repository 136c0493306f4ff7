package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceKind is the closed set of attachable source kinds. New kinds
// extend this set; nothing in the pipeline conditions on raw strings.
type SourceKind string

const (
	KindURLRemote  SourceKind = "url-remote"
	KindPostgres   SourceKind = "postgres"
	KindMySQL      SourceKind = "mysql"
	KindIceberg    SourceKind = "iceberg"
	KindMotherDuck SourceKind = "motherduck"
	KindGSheet     SourceKind = "gsheet"
	KindHTTPServer SourceKind = "httpserver"
)

// AllKinds returns every registered source kind, in stable order.
func AllKinds() []SourceKind {
	return []SourceKind{
		KindURLRemote, KindPostgres, KindMySQL, KindIceberg,
		KindMotherDuck, KindGSheet, KindHTTPServer,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k SourceKind) Valid() bool {
	switch k {
	case KindURLRemote, KindPostgres, KindMySQL, KindIceberg,
		KindMotherDuck, KindGSheet, KindHTTPServer:
		return true
	}
	return false
}

// ConnectionState is the per-source lifecycle state visible to the UI.
type ConnectionState string

const (
	StateConnecting          ConnectionState = "connecting"
	StateConnected           ConnectionState = "connected"
	StateError               ConnectionState = "error"
	StateDisconnected        ConnectionState = "disconnected"
	StateCredentialsRequired ConnectionState = "credentials-required"
)

// CanTransitionTo reports whether the state machine permits moving
// from s to next. A source is never marked connected without passing
// through connecting (attach + verify).
func (s ConnectionState) CanTransitionTo(next ConnectionState) bool {
	if s == next {
		return false
	}
	switch s {
	case StateConnecting:
		return next == StateConnected || next == StateError || next == StateCredentialsRequired
	case StateConnected:
		return next == StateDisconnected
	case StateError, StateDisconnected, StateCredentialsRequired:
		return next == StateConnecting
	}
	return false
}

// SourceConfig is the tagged union of per-kind connection configs.
// Each driver package implements it with a typed struct; the pipeline
// never handles untyped config maps.
type SourceConfig interface {
	// Kind returns the discriminant.
	Kind() SourceKind

	// Alias returns the engine-level database alias the source will be
	// attached under. Aliases share the engine catalog namespace.
	Alias() string

	// Validate checks required fields and screens user-supplied string
	// values before any engine call. Returns *apperrors.ValidationError.
	Validate() error

	// NeedsSecret reports whether attaching requires credential
	// material exposed to the engine via CREATE SECRET.
	NeedsSecret() bool

	// SecretData returns the credential material for the vault, or nil
	// when NeedsSecret is false.
	SecretData() map[string]string

	// Redacted returns a loggable copy of the config with credential
	// fields blanked.
	Redacted() map[string]string
}

// DataSource is the durable unit of a connection: one record per
// attached external source. ID is the single join key used by the
// registry, the vault reference, and the UI node mapping.
type DataSource struct {
	ID              uuid.UUID       `json:"id"`
	Kind            SourceKind      `json:"kind"`
	DisplayName     string          `json:"display_name"`
	State           ConnectionState `json:"connection_state"`
	ConnectionError string          `json:"connection_error,omitempty"` // set only when State == error
	AttachedAt      *time.Time      `json:"attached_at,omitempty"`
	CredentialsRef  string          `json:"credentials_ref,omitempty"` // vault secret ID, empty for public sources
	SharedSecret    bool            `json:"shared_secret,omitempty"`   // shared secrets survive record deletion
	EngineSecret    string          `json:"-"`                         // engine-level secret name for the current attachment
	Config          SourceConfig    `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a shallow copy. Config values are immutable after
// validation, so sharing the interface value is safe.
func (d *DataSource) Clone() *DataSource {
	cp := *d
	if d.AttachedAt != nil {
		at := *d.AttachedAt
		cp.AttachedAt = &at
	}
	return &cp
}

// Transition moves the record to next, enforcing the state machine.
// ConnectionError is cleared on every transition (the caller sets it
// again only for State == error).
func (d *DataSource) Transition(next ConnectionState) error {
	if !d.State.CanTransitionTo(next) {
		return fmt.Errorf("illegal connection state transition %s -> %s for %s", d.State, next, d.ID)
	}
	d.State = next
	d.ConnectionError = ""
	d.UpdatedAt = time.Now()
	return nil
}
