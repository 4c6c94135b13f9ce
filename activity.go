package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventTokenIssued      ActivityEventType = "session.token.issued"
	ActivityEventTokenIssueFailed ActivityEventType = "session.token.issue_failed"
	ActivityEventTokenRejected    ActivityEventType = "session.token.rejected"
	ActivityEventSecretRotated    ActivityEventType = "session.secret.rotated"
	ActivityEventSecretPruned     ActivityEventType = "session.secret.pruned"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	ID        string
	EventType ActivityEventType
	Login     string
	SecretID  string
	// Reason is the internal rejection reason. It is never sent to clients.
	Reason     RejectReason
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// emitActivity records event on a best effort basis, failures are logged.
func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if sink == nil {
		return
	}
	if _, ok := sink.(noopActivitySink); ok {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink failed to record %s: %v", event.EventType, err)
	}
}
