package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ForgotPassword starts a password reset. It returns the same
// acknowledgment whether or not the email is registered, so the
// response cannot be used to enumerate accounts.
func (e *Engine) ForgotPassword(ctx context.Context, email string, meta RequestMeta) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := e.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return ForgotPasswordACK, nil
		}
		return "", e.internalError("forgot password", err)
	}

	otp, err := GenerateOTP(e.config.OTPLength)
	if err != nil {
		return "", e.internalError("forgot password", err)
	}

	expiresAt := e.now().Add(e.config.OTPTTL)
	if err := e.repo.Accounts().SetPasswordResetOTP(ctx, account.ID, otp, expiresAt); err != nil {
		return "", e.internalError("forgot password", err)
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %s.", otp, e.config.OTPTTL)
	if err := e.dispatch.Send(ctx, account.Email, "Reset your password", body); err != nil {
		e.logger.Error("reset code dispatch failed", "email", account.Email, "error", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditPasswordResetRequested,
		Meta:      meta,
		Success:   true,
	})

	return ForgotPasswordACK, nil
}

// ResetPassword consumes a reset code and installs a new password.
// The code check, the code clear and the hash write are one atomic
// statement. It does not log the user in.
func (e *Engine) ResetPassword(ctx context.Context, email, otp, newPassword string, meta RequestMeta) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return ErrOTPInvalidOrExpired
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	account, err := e.repo.Accounts().ResetPasswordByOTP(ctx, email, otp, hash)
	if err != nil {
		if errors.IsNotFound(err) {
			e.audit.Record(ctx, AuditEvent{
				Action:  AuditPasswordResetSuccess,
				Meta:    meta,
				Detail:  "invalid or expired code",
				Success: false,
			})
			return ErrOTPInvalidOrExpired
		}
		return e.internalError("reset password", err)
	}

	if err := e.repo.RefreshTokens().RevokeAllForAccount(ctx, account.ID); err != nil {
		e.logger.Error("failed to revoke sessions after password reset", "email", email, "error", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditPasswordResetSuccess,
		Meta:      meta,
		Success:   true,
	})

	return nil
}

// ChangePassword swaps the password for an authenticated caller. The
// current password must verify against the stored hash first.
func (e *Engine) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string, meta RequestMeta) error {
	account, err := e.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return e.internalError("change password", err)
	}

	if err := ComparePasswordAndHash(currentPassword, account.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			e.audit.Record(ctx, AuditEvent{
				AccountID: &account.ID,
				Action:    AuditPasswordChanged,
				Meta:      meta,
				Detail:    "current password mismatch",
				Success:   false,
			})
			return ErrInvalidCredentials
		}
		return e.internalError("change password", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := e.repo.Accounts().UpdatePassword(ctx, account.ID, hash); err != nil {
		return e.internalError("change password", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditPasswordChanged,
		Meta:      meta,
		Success:   true,
	})

	return nil
}
