package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEvent captures the facts of one authentication relevant action
// before it is persisted as an AuditEntry.
type AuditEvent struct {
	AccountID *uuid.UUID
	Action    string
	Meta      RequestMeta
	Detail    string
	Success   bool
}

// AuditRecorder consumes audit events. Recording is best effort on
// the success path: a storage failure is logged, never propagated, so
// it cannot abort an otherwise successful operation.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditRecorderFunc adapts a function to the AuditRecorder interface.
type AuditRecorderFunc func(ctx context.Context, event AuditEvent)

// Record implements AuditRecorder.
func (f AuditRecorderFunc) Record(ctx context.Context, event AuditEvent) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEvent) {}

func normalizeAuditRecorder(r AuditRecorder) AuditRecorder {
	if r == nil {
		return noopAuditRecorder{}
	}
	return r
}

type storeAuditRecorder struct {
	log    AuditLog
	logger Logger
}

// NewAuditRecorder persists events through the given AuditLog.
func NewAuditRecorder(log AuditLog, logger Logger) AuditRecorder {
	if logger == nil {
		logger = defLogger{}
	}
	return &storeAuditRecorder{
		log:    log,
		logger: logger,
	}
}

func (r *storeAuditRecorder) Record(ctx context.Context, event AuditEvent) {
	now := time.Now()
	entry := &AuditEntry{
		AccountID: event.AccountID,
		Action:    event.Action,
		IP:        event.Meta.IP,
		UserAgent: event.Meta.UserAgent,
		Detail:    event.Detail,
		Success:   event.Success,
		CreatedAt: &now,
	}

	if err := r.log.Append(ctx, entry); err != nil {
		r.logger.Error("audit append failed", "action", event.Action, "error", err)
	}
}
