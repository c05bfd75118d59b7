package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProfileUpdate carries the mutable, non security relevant fields.
// Empty fields are left untouched.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	Country   string
	Locale    string
	AvatarURL string
}

// UpdateProfile updates the caller's own profile fields.
func (e *Engine) UpdateProfile(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*Account, error) {
	account, err := e.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, e.internalError("update profile", err)
	}

	if v := strings.TrimSpace(update.FirstName); v != "" {
		account.FirstName = v
	}
	if v := strings.TrimSpace(update.LastName); v != "" {
		account.LastName = v
	}
	if v := strings.TrimSpace(update.Phone); v != "" {
		account.Phone = v
	}
	if v := strings.TrimSpace(update.Country); v != "" {
		account.Country = v
	}
	if v := strings.TrimSpace(update.Locale); v != "" {
		account.Locale = v
	}
	if v := strings.TrimSpace(update.AvatarURL); v != "" {
		account.AvatarURL = v
	}

	account, err = e.repo.Accounts().Update(ctx, account)
	if err != nil {
		return nil, e.internalError("update profile", err)
	}

	return account, nil
}

// ListAccounts returns a page of accounts plus the total count.
func (e *Engine) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	records, total, err := e.repo.Accounts().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, e.internalError("list accounts", err)
	}
	return records, total, nil
}

// UpdateRole changes an account's role. Admin only at the transport
// boundary; the engine records who did it.
func (e *Engine) UpdateRole(ctx context.Context, actorID, accountID uuid.UUID, role Role, meta RequestMeta) (*Account, error) {
	if !role.IsValid() {
		return nil, errors.New("unknown role", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	account, err := e.repo.Accounts().UpdateRole(ctx, accountID, role)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, e.internalError("update role", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &actorID,
		Action:    AuditRoleUpdated,
		Meta:      meta,
		Detail:    "account " + accountID.String() + " role set to " + role.String(),
		Success:   true,
	})

	return account, nil
}

// Deactivate soft deletes an account and revokes its sessions. The
// row stays in place so audit entries and foreign keys keep their
// targets. Administrators cannot deactivate themselves.
func (e *Engine) Deactivate(ctx context.Context, actorID, accountID uuid.UUID, meta RequestMeta) error {
	if actorID == accountID {
		return ErrSelfDelete
	}

	if _, err := e.repo.Accounts().GetByID(ctx, accountID); err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return e.internalError("deactivate", err)
	}

	if err := e.repo.Accounts().SoftDelete(ctx, accountID); err != nil {
		return e.internalError("deactivate", err)
	}

	if err := e.repo.RefreshTokens().RevokeAllForAccount(ctx, accountID); err != nil {
		e.logger.Error("failed to revoke sessions on deactivation", "account", accountID, "error", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &actorID,
		Action:    AuditAccountDeactivated,
		Meta:      meta,
		Detail:    "account " + accountID.String(),
		Success:   true,
	})

	return nil
}

// AccountStatistics returns the aggregate snapshot for the admin
// dashboard.
func (e *Engine) AccountStatistics(ctx context.Context) (*Statistics, error) {
	stats, err := e.repo.Accounts().Statistics(ctx)
	if err != nil {
		return nil, e.internalError("statistics", err)
	}
	return stats, nil
}
