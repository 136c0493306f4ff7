// Package engine wraps access to the embedded analytical query engine:
// a shared pooled connection with acquire/release semantics, statement
// construction, and centralized classification of engine error text.
package engine

import (
	"strings"

	"github.com/skiff-data/skiff-engine/pkg/logging"
)

// Statement is a single engine command plus a pre-scrubbed form for
// logging. CREATE SECRET statements carry raw credential material, so
// the raw SQL must never reach a log line; String() returns the
// redacted form to keep accidental %v formatting safe.
type Statement struct {
	SQL      string
	redacted string
}

// NewStatement builds a Statement, computing the redacted form once.
func NewStatement(sql string) Statement {
	return Statement{
		SQL:      sql,
		redacted: logging.SanitizeStatement(sql),
	}
}

// Redacted returns the loggable form of the statement.
func (s Statement) Redacted() string {
	if s.redacted == "" && s.SQL != "" {
		return logging.SanitizeStatement(s.SQL)
	}
	return s.redacted
}

func (s Statement) String() string { return s.Redacted() }

// IsZero reports whether the statement is empty.
func (s Statement) IsZero() bool { return strings.TrimSpace(s.SQL) == "" }
