package audit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return logger, recorded
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogInjectionAttempt(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	details := InjectionDetails{
		Field:  "database",
		Reason: "contains a SQL injection pattern (fingerprint s&1c)",
	}

	auditor.LogInjectionAttempt("postgres", details, "192.168.1.100")

	logs := recorded.All()
	require.Len(t, logs, 1, "Expected exactly one log entry")

	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level, "Should log at ERROR level")
	assert.Equal(t, "Injection pattern in source config", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "postgres", fields["kind"])
	assert.Equal(t, "database", fields["field"])
	assert.Equal(t, "192.168.1.100", fields["client_ip"])
	assert.Equal(t, "critical", fields["severity"])

	eventJSON, ok := fields["event_json"].(string)
	require.True(t, ok, "event_json should be a string")

	var event SecurityEvent
	err := json.Unmarshal([]byte(eventJSON), &event)
	require.NoError(t, err, "event_json should be valid JSON")

	assert.Equal(t, EventInjectionAttempt, event.EventType)
	assert.Equal(t, "postgres", event.Kind)
	assert.Equal(t, "critical", event.Severity)

	detailsMap, ok := event.Details.(map[string]any)
	require.True(t, ok, "Details should be a map")
	assert.Equal(t, "database", detailsMap["field"])
	assert.Contains(t, detailsMap["reason"], "fingerprint")
}

func TestLogInjectionAttempt_NeverRecordsValue(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogInjectionAttempt("mysql", InjectionDetails{
		Field:  "user",
		Reason: "contains a SQL injection pattern (fingerprint o1o)",
	}, "10.0.0.5")

	logs := recorded.All()
	require.Len(t, logs, 1)

	// The event carries field and fingerprint only; the offending
	// value must not appear anywhere in the log entry.
	eventJSON := logs[0].ContextMap()["event_json"].(string)
	assert.NotContains(t, eventJSON, "' OR '1'='1")
}

func TestLogSourceLifecycle(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	sourceID := uuid.New()
	auditor.LogSourceLifecycle(sourceID, "postgres", "attached", "10.0.0.50")

	logs := recorded.All()
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level, "Should log at INFO level")
	assert.Equal(t, "Source lifecycle event", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, sourceID.String(), fields["source_id"])
	assert.Equal(t, "attached", fields["action"])
	assert.Equal(t, "info", fields["severity"])

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventSourceLifecycle, event.EventType)
	assert.Equal(t, sourceID, event.SourceID)
}

func TestLogCredentialsFailure(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	sourceID := uuid.New()
	auditor.LogCredentialsFailure(sourceID, "motherduck", "172.16.0.1")

	logs := recorded.All()
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level, "Should log at WARN level")

	fields := entry.ContextMap()
	assert.Equal(t, sourceID.String(), fields["source_id"])
	assert.Equal(t, "motherduck", fields["kind"])
	assert.Equal(t, "warning", fields["severity"])

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventCredentialsFailure, event.EventType)
}

func TestLoggerNamespace(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogSourceLifecycle(uuid.New(), "gsheet", "removed", "127.0.0.1")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "security_audit", logs[0].LoggerName)
}

func TestSecurityEventSerialization(t *testing.T) {
	event := SecurityEvent{
		EventType: EventInjectionAttempt,
		SourceID:  uuid.New(),
		Kind:      "postgres",
		ClientIP:  "127.0.0.1",
		Details:   InjectionDetails{Field: "host", Reason: "pattern"},
		Severity:  "critical",
	}

	jsonBytes, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded SecurityEvent
	require.NoError(t, json.Unmarshal(jsonBytes, &decoded))

	assert.Equal(t, event.EventType, decoded.EventType)
	assert.Equal(t, event.SourceID, decoded.SourceID)
	assert.Equal(t, event.Kind, decoded.Kind)
	assert.Equal(t, event.Severity, decoded.Severity)
}
