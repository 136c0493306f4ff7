// Package drivers defines the per-kind attachment drivers: each knows
// how to build the engine statements that attach, secure, and verify
// its source kind, and how to recognize "already attached" as success.
// Drivers only build statements; they never talk to the engine.
package drivers

import (
	"fmt"
	"sync"
	"time"

	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/models"
)

// Info describes a registered driver for UI discovery.
type Info struct {
	Kind        models.SourceKind `json:"kind"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	NeedsSecret bool              `json:"needs_secret"`
}

// VerificationBudget bounds catalog-confirmation polling for a kind.
// Cross-account kinds (Iceberg, MotherDuck) settle slower than local
// attaches and get a larger budget.
type VerificationBudget struct {
	Attempts int
	Delay    time.Duration
}

// RoutineVerification is the budget for attaches whose catalog entry
// appears near-instantly.
func RoutineVerification() VerificationBudget {
	return VerificationBudget{Attempts: 3, Delay: 100 * time.Millisecond}
}

// SlowVerification is the budget for multi-step attaches whose catalog
// takes longer to settle.
func SlowVerification() VerificationBudget {
	return VerificationBudget{Attempts: 10, Delay: 500 * time.Millisecond}
}

// Driver is the per-kind attachment contract.
type Driver interface {
	// Kind returns the source kind this driver serves.
	Kind() models.SourceKind

	// Info returns UI discovery metadata.
	Info() Info

	// ParseConfig validates a raw config map into the kind's typed
	// config. Validation failures never reach the retry executor.
	ParseConfig(raw map[string]any) (models.SourceConfig, error)

	// SecretStatement builds the CREATE SECRET statement exposing
	// credential material to the engine under secretName. Returns a
	// zero statement for kinds that need no engine secret.
	SecretStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error)

	// AttachStatement builds the attach statement. secretName is empty
	// when SecretStatement returned a zero statement.
	AttachStatement(cfg models.SourceConfig, secretName string) (engine.Statement, error)

	// VerificationBudget returns the catalog polling budget for this kind.
	VerificationBudget() VerificationBudget

	// IsDuplicateAttachError reports whether err means the source is
	// already attached, which the pipeline reconciles as success.
	IsDuplicateAttachError(err error) bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.SourceKind]Driver)
)

// Register is called by each driver package's init(). Thread-safe for
// concurrent init() calls.
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Kind()] = d
}

// Get returns the driver for a kind, or an error for unknown kinds.
func Get(kind models.SourceKind) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported source kind: %s (not compiled in)", kind)
	}
	return d, nil
}

// Registered returns info for every registered driver, in the stable
// order of models.AllKinds. Used by the list-kinds endpoint.
func Registered() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Info, 0, len(registry))
	for _, kind := range models.AllKinds() {
		if d, ok := registry[kind]; ok {
			out = append(out, d.Info())
		}
	}
	return out
}

// DetachStatement builds the statement removing an attached source
// from the engine catalog. Shared by every kind.
func DetachStatement(alias string) engine.Statement {
	return engine.NewStatement(fmt.Sprintf("DETACH DATABASE %s", QuoteIdentifier(alias)))
}

// DropSecretStatement builds the statement removing an engine-level
// secret. Shared by every kind that creates one.
func DropSecretStatement(secretName string) engine.Statement {
	return engine.NewStatement(fmt.Sprintf("DROP SECRET IF EXISTS %s", QuoteIdentifier(secretName)))
}

// VerificationQuery builds the catalog-introspection query confirming
// an alias is present in the live catalog. The alias is bound as a
// parameter, never interpolated.
func VerificationQuery() engine.Statement {
	return engine.NewStatement("SELECT database_name FROM duckdb_databases() WHERE database_name = ?")
}
