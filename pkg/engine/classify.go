package engine

import "strings"

// ErrorKind is the coarse classification of an engine error message.
type ErrorKind int

const (
	// ErrorFatal is a permanent failure: bad config, name collision
	// with a different target, engine-side syntax errors.
	ErrorFatal ErrorKind = iota
	// ErrorDuplicate means the target is already attached or the
	// secret already exists: success-equivalent for idempotent attach.
	ErrorDuplicate
	// ErrorAuth is a 401/403-class failure needing fresh credentials.
	ErrorAuth
	// ErrorTransient is a network or timeout class failure worth retrying.
	ErrorTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDuplicate:
		return "duplicate"
	case ErrorAuth:
		return "auth"
	case ErrorTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Substring lists live here and only here; drivers and the pipeline go
// through ClassifyError instead of scattering strings.Contains calls.
var (
	duplicatePatterns = []string{
		"already in use",
		"already attached",
		"unique file handle conflict",
		"already exists",
	}

	authPatterns = []string{
		"401",
		"403",
		"unauthorized",
		"forbidden",
		"authentication failed",
		"password authentication",
		"invalid token",
		"token expired",
		"invalid credentials",
		"access denied",
		"permission denied",
		"signature does not match",
	}

	transientPatterns = []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"i/o timeout",
		"network is unreachable",
		"context deadline exceeded",
		"429",
		"500",
		"502",
		"503",
		"504",
		"rate limit",
		"service unavailable",
		"too many requests",
	}
)

// ClassifyError maps an engine error to an ErrorKind. Duplicate wins
// over auth and transient: re-running the same configuration should
// treat "it's already there" as success, whatever else the message says.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorFatal
	}
	return ClassifyErrorMessage(err.Error())
}

// ClassifyErrorMessage classifies raw engine error text.
func ClassifyErrorMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)

	for _, p := range duplicatePatterns {
		if strings.Contains(lower, p) {
			return ErrorDuplicate
		}
	}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) {
			return ErrorAuth
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return ErrorTransient
		}
	}
	return ErrorFatal
}

// IsDuplicate reports whether err is a duplicate-attach class error.
func IsDuplicate(err error) bool {
	return err != nil && ClassifyError(err) == ErrorDuplicate
}

// IsAuth reports whether err is an auth-shaped failure.
func IsAuth(err error) bool {
	return err != nil && ClassifyError(err) == ErrorAuth
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && ClassifyError(err) == ErrorTransient
}
