package drivers

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

// identifierPattern is the shape of an engine catalog alias or secret
// name. Anything else is rejected before statement construction, so
// aliases can be interpolated into DDL without quoting surprises.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name can be used as an engine alias
// or secret name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// RequireIdentifier validates a required alias-like field.
func RequireIdentifier(field, value string) error {
	if value == "" {
		return apperrors.NewValidationError(field, "is required")
	}
	if !ValidIdentifier(value) {
		return apperrors.NewValidationError(field, "must start with a letter or underscore and contain only letters, digits, and underscores")
	}
	return nil
}

// RequireField validates a required free-form field, screening it for
// SQL-injection fingerprints since its value ends up inside engine DDL.
func RequireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field, "is required")
	}
	return ScreenField(field, value)
}

// ScreenField runs libinjection over a user-supplied string that will
// be interpolated into an engine statement. Credentials and URIs are
// quoted as literals, but a value carrying an injection fingerprint is
// rejected outright rather than trusted to quoting.
func ScreenField(field, value string) error {
	if value == "" {
		return nil
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return apperrors.NewValidationError(field,
			fmt.Sprintf("contains a SQL injection pattern (fingerprint %s)", string(fingerprint)))
	}
	return nil
}

// QuoteIdentifier quotes an already-validated identifier for DDL.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral single-quotes a string literal for engine DDL, escaping
// embedded quotes.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// StringField extracts an optional string from a raw config map.
func StringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// IntField extracts an optional integer from a raw config map,
// tolerating the float64 that JSON decoding produces.
func IntField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// BoolField extracts an optional boolean from a raw config map.
func BoolField(raw map[string]any, key string) bool {
	if v, ok := raw[key].(bool); ok {
		return v
	}
	return false
}
