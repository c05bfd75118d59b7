package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Login verifies credentials and opens a session. Failures are
// deliberately indistinguishable between unknown email and wrong
// password. Failed attempts feed the lockout counter atomically at
// the storage layer, so parallel attempts cannot under count.
func (e *Engine) Login(ctx context.Context, email, password string, meta RequestMeta) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := e.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			e.audit.Record(ctx, AuditEvent{
				Action:  AuditLoginFailed,
				Meta:    meta,
				Detail:  "unknown email",
				Success: false,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, e.internalError("login", err)
	}

	now := e.now()
	if account.LockedAt(now) {
		e.audit.Record(ctx, AuditEvent{
			AccountID: &account.ID,
			Action:    AuditLoginBlockedLockout,
			Meta:      meta,
			Success:   false,
		})
		return nil, LockedUntil(*account.LockoutUntil)
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, e.internalError("login", err)
		}

		policy := LockoutPolicy{
			Threshold: e.config.LockoutThreshold,
			Duration:  e.config.LockoutDuration,
		}
		updated, recErr := e.repo.Accounts().RecordFailedLogin(ctx, account.ID, policy)
		if recErr != nil {
			e.logger.Error("failed login bookkeeping error", "email", email, "error", recErr)
		} else if updated.LockedAt(now) {
			e.logger.Warn("account locked out", "email", email, "until", updated.LockoutUntil)
		}

		e.audit.Record(ctx, AuditEvent{
			AccountID: &account.ID,
			Action:    AuditLoginFailed,
			Meta:      meta,
			Detail:    "wrong password",
			Success:   false,
		})
		return nil, ErrInvalidCredentials
	}

	if account.Status == StatusSuspended {
		e.audit.Record(ctx, AuditEvent{
			AccountID: &account.ID,
			Action:    AuditLoginFailed,
			Meta:      meta,
			Detail:    "account suspended",
			Success:   false,
		})
		return nil, ErrAccountSuspended
	}

	if !account.EmailVerified {
		if _, err := e.sendVerificationOTP(ctx, account); err != nil {
			return nil, e.internalError("login", err)
		}
		e.audit.Record(ctx, AuditEvent{
			AccountID: &account.ID,
			Action:    AuditLoginFailed,
			Meta:      meta,
			Detail:    "verification required, code resent",
			Success:   false,
		})
		return nil, ErrVerificationRequired
	}

	account, err = e.repo.Accounts().TrackSuccessfulLogin(ctx, account.ID)
	if err != nil {
		return nil, e.internalError("login", err)
	}

	result, err := e.issueSession(ctx, account)
	if err != nil {
		return nil, e.internalError("login", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditLoginSuccess,
		Meta:      meta,
		Success:   true,
	})

	return result, nil
}

// Logout revokes the given refresh token. Revoking an unknown or
// already revoked token is a no-op so the operation is idempotent.
// actorID is recorded when the caller's access token identified them.
func (e *Engine) Logout(ctx context.Context, refreshToken string, actorID *uuid.UUID, meta RequestMeta) error {
	if strings.TrimSpace(refreshToken) != "" {
		if err := e.repo.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
			return e.internalError("logout", err)
		}
	}

	if actorID != nil {
		e.audit.Record(ctx, AuditEvent{
			AccountID: actorID,
			Action:    AuditLogout,
			Meta:      meta,
			Success:   true,
		})
	}

	return nil
}
