package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event represents an audit event
type Event struct {
	ID         string                 `json:"id"`
	Actor      string                 `json:"actor"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Result     string                 `json:"result"` // success, failure
	Error      string                 `json:"error,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// ZapAuditLogger implements audit logging using zap
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates a new zap-based audit logger
func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: logger}
}

// Log logs an audit event
func (l *ZapAuditLogger) Log(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.String("audit_actor", event.Actor),
		zap.String("audit_action", event.Action),
		zap.String("audit_resource", event.Resource),
		zap.String("audit_resource_id", event.ResourceID),
		zap.String("audit_result", event.Result),
		zap.Time("audit_timestamp", event.Timestamp),
	}

	if event.Error != "" {
		fields = append(fields, zap.String("audit_error", event.Error))
	}

	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("audit_details", string(detailsJSON)))
	}

	if event.Result == "success" {
		l.logger.Info("audit", fields...)
	} else {
		l.logger.Error("audit", fields...)
	}
	return nil
}

// NopLogger discards audit events
type NopLogger struct{}

// Log implements Logger for NopLogger
func (NopLogger) Log(ctx context.Context, event Event) error { return nil }
