package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// RegisterInput carries validated registration fields into the engine.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Country   string
	Locale    string
}

// Register creates a new pending account, stores a verification code
// against it and dispatches the code out-of-band. The password never
// leaves this function in any form but the hash.
func (e *Engine) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if existing, err := e.repo.Accounts().GetByEmail(ctx, email); err == nil && existing != nil {
		e.audit.Record(ctx, AuditEvent{
			AccountID: &existing.ID,
			Action:    AuditUserRegistered,
			Meta:      meta,
			Detail:    "duplicate email",
			Success:   false,
		})
		return nil, ErrDuplicateEmail
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, e.internalError("register", err)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Country:      strings.TrimSpace(input.Country),
		Locale:       strings.TrimSpace(input.Locale),
		Role:         RoleStandard,
		Status:       StatusPending,
	}

	account, err = e.repo.Accounts().Create(ctx, account)
	if err != nil {
		return nil, e.internalError("register", err)
	}

	delivered, err := e.sendVerificationOTP(ctx, account)
	if err != nil {
		return nil, e.internalError("register", err)
	}

	detail := "verification code sent"
	if !delivered {
		detail = "verification code dispatch failed"
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditUserRegistered,
		Meta:      meta,
		Detail:    detail,
		Success:   true,
	})

	return &RegisterResult{
		ID:    account.ID,
		Email: account.Email,
	}, nil
}

// VerifyEmail consumes a verification code. Match and clear happen in
// one atomic statement, so a code can only ever be spent once. This is
// the single path where verification doubles as a login.
func (e *Engine) VerifyEmail(ctx context.Context, email, otp string, meta RequestMeta) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return nil, ErrOTPInvalidOrExpired
	}

	account, err := e.repo.Accounts().VerifyEmailOTP(ctx, email, otp)
	if err != nil {
		if errors.IsNotFound(err) {
			e.audit.Record(ctx, AuditEvent{
				Action:  AuditEmailVerified,
				Meta:    meta,
				Detail:  "invalid or expired code",
				Success: false,
			})
			return nil, ErrOTPInvalidOrExpired
		}
		return nil, e.internalError("verify email", err)
	}

	result, err := e.issueSession(ctx, account)
	if err != nil {
		return nil, e.internalError("verify email", err)
	}

	e.audit.Record(ctx, AuditEvent{
		AccountID: &account.ID,
		Action:    AuditEmailVerified,
		Meta:      meta,
		Success:   true,
	})

	return result, nil
}
