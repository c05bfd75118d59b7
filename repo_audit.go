package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditLog appends security events. Entries are never updated or
// deleted here; the read path lives elsewhere.
type AuditLog interface {
	Append(ctx context.Context, entry *AuditEntry) error
}

type auditLog struct {
	repository.Repository[*AuditEntry]
}

var _ AuditLog = (*auditLog)(nil)

func NewAuditLogRepository(db *bun.DB) AuditLog {
	repo := repository.NewRepository[*AuditEntry](db, repository.ModelHandlers[*AuditEntry]{
		NewRecord: func() *AuditEntry { return &AuditEntry{} },
		GetID: func(e *AuditEntry) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *AuditEntry, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &auditLog{
		Repository: repo,
	}
}

func (a *auditLog) Append(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := a.Repository.Create(ctx, entry)
	return err
}
