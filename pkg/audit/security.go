// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy
// parsing and integration with security information and event
// management systems.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionAttempt is logged when libinjection flags a
	// user-supplied config value during screening.
	EventInjectionAttempt SecurityEventType = "config_injection_attempt"
	// EventSourceLifecycle is logged when a source is attached,
	// detached, or removed.
	EventSourceLifecycle SecurityEventType = "source_lifecycle"
	// EventCredentialsFailure is logged when an attach fails for
	// credential reasons (bad password, missing vault entry).
	EventCredentialsFailure SecurityEventType = "credentials_failure"
)

// SecurityEvent represents an auditable security event with all
// relevant context for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SourceID  uuid.UUID         `json:"source_id,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a rejected config value.
// The value itself is never recorded; the libinjection fingerprint is
// enough for pattern analysis.
type InjectionDetails struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a security auditor with a dedicated
// "security_audit" logger namespace for SIEM filtering.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a config value rejected by injection
// screening. Logged at ERROR level with "critical" severity for
// immediate alerting. Client IP comes from the HTTP request
// (typically r.RemoteAddr).
func (a *SecurityAuditor) LogInjectionAttempt(kind string, details InjectionDetails, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionAttempt,
		Kind:      kind,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "critical",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Injection pattern in source config",
		zap.String("event_json", string(eventJSON)),
		zap.String("kind", kind),
		zap.String("field", details.Field),
		zap.String("client_ip", clientIP),
		zap.String("severity", "critical"),
	)
}

// LogSourceLifecycle records a lifecycle action against a source
// (attached, disconnected, removed). Logged at INFO level.
func (a *SecurityAuditor) LogSourceLifecycle(sourceID uuid.UUID, kind, action, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSourceLifecycle,
		SourceID:  sourceID,
		Kind:      kind,
		ClientIP:  clientIP,
		Details:   map[string]string{"action": action},
		Severity:  "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Source lifecycle event",
		zap.String("event_json", string(eventJSON)),
		zap.String("source_id", sourceID.String()),
		zap.String("kind", kind),
		zap.String("action", action),
		zap.String("client_ip", clientIP),
		zap.String("severity", "info"),
	)
}

// LogCredentialsFailure records an attach that failed for credential
// reasons. Logged at WARN level; repeated failures against one source
// are an alerting signal.
func (a *SecurityAuditor) LogCredentialsFailure(sourceID uuid.UUID, kind, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventCredentialsFailure,
		SourceID:  sourceID,
		Kind:      kind,
		ClientIP:  clientIP,
		Details:   map[string]string{"outcome": "credentials-required"},
		Severity:  "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Source attach rejected for credentials",
		zap.String("event_json", string(eventJSON)),
		zap.String("source_id", sourceID.String()),
		zap.String("kind", kind),
		zap.String("client_ip", clientIP),
		zap.String("severity", "warning"),
	)
}
