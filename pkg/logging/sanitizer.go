// Package logging holds helpers for scrubbing credential material out
// of errors and statements before they reach logs or the UI.
package logging

import (
	"regexp"
)

const (
	// MaxStatementLogLength is the maximum length of a statement to log.
	MaxStatementLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx until the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s']+`)

	// user:pass@host connection string credentials
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// quoted values of credential options inside engine DDL, e.g.
	// CREATE SECRET (... KEY_ID 'x', SECRET 'y', TOKEN 'z', PASSWORD 'w')
	ddlSecretPattern = regexp.MustCompile(`(?i)\b(KEY_ID|SECRET|TOKEN|PASSWORD|SESSION_TOKEN|CLIENT_SECRET)\s+'[^']*'`)

	// bearer tokens (three base64url segments)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// api_key=... style query parameters and options
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{16,}`)

	// motherduck attach URIs can carry the token inline: md:db?motherduck_token=...
	mdTokenPattern = regexp.MustCompile(`(?i)motherduck_token=[^&\s']+`)
)

func scrub(s string) string {
	s = ddlSecretPattern.ReplaceAllString(s, "${1} '"+RedactedText+"'")
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = mdTokenPattern.ReplaceAllString(s, "motherduck_token="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// SanitizeError scrubs an error message of credential material.
// Use this before logging or surfacing any error from engine operations.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return scrub(err.Error())
}

// SanitizeStatement scrubs and truncates an engine statement for logging.
// CREATE SECRET statements carry raw credentials, so this must be applied
// to every statement that is logged.
func SanitizeStatement(stmt string) string {
	if stmt == "" {
		return ""
	}
	s := scrub(stmt)
	if len(s) > MaxStatementLogLength {
		s = s[:MaxStatementLogLength] + "..."
	}
	return s
}

// SanitizeString scrubs an arbitrary string (URIs, config echoes).
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}
	return scrub(s)
}
