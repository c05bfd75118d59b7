package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
)

// Engine orchestrates registration, verification, login, token
// refresh, password reset and lockout bookkeeping. It holds no
// cross-request state; everything session relevant lives behind the
// RepositoryManager.
type Engine struct {
	repo     RepositoryManager
	tokens   TokenService
	audit    AuditRecorder
	dispatch NotificationDispatcher
	logger   Logger
	config   Config
	now      func() time.Time
}

// NewEngine returns a new Engine
func NewEngine(repo RepositoryManager, config Config) *Engine {
	logger := defLogger{}
	return &Engine{
		repo:     repo,
		tokens:   NewTokenService(config, logger),
		audit:    noopAuditRecorder{},
		dispatch: noopDispatcher{},
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

func (e *Engine) WithLogger(logger Logger) *Engine {
	e.logger = logger
	e.tokens = NewTokenService(e.config, logger)
	return e
}

// WithAuditRecorder configures the sink for security events.
func (e *Engine) WithAuditRecorder(recorder AuditRecorder) *Engine {
	e.audit = normalizeAuditRecorder(recorder)
	return e
}

// WithDispatcher configures the out-of-band notification channel.
func (e *Engine) WithDispatcher(d NotificationDispatcher) *Engine {
	e.dispatch = normalizeDispatcher(d)
	return e
}

// WithTokenService overrides the default token service.
func (e *Engine) WithTokenService(ts TokenService) *Engine {
	if ts != nil {
		e.tokens = ts
	}
	return e
}

// WithClock overrides the time source, used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// TokenService returns the token service used by this Engine.
func (e *Engine) TokenService() TokenService {
	return e.tokens
}

// issueSession creates the access token and persists a fresh refresh
// token for the account.
func (e *Engine) issueSession(ctx context.Context, account *Account) (*AuthResult, error) {
	access, accessExpiresAt, err := e.tokens.IssueAccessToken(account)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to issue access token")
	}

	value, err := GenerateRefreshTokenValue()
	if err != nil {
		return nil, err
	}

	refreshExpiresAt := e.now().Add(e.config.RefreshTokenTTL)
	record := &RefreshToken{
		AccountID: account.ID,
		Token:     value,
		ExpiresAt: refreshExpiresAt,
	}

	if _, err := e.repo.RefreshTokens().Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return &AuthResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     value,
		RefreshExpiresAt: refreshExpiresAt,
		Account:          account,
	}, nil
}

// sendVerificationOTP generates a fresh email verification code,
// stores it against the account replacing any prior one, and
// dispatches it. A delivery failure degrades the operation: it is
// logged and surfaced through the returned flag, never as an error.
func (e *Engine) sendVerificationOTP(ctx context.Context, account *Account) (delivered bool, err error) {
	otp, err := GenerateOTP(e.config.OTPLength)
	if err != nil {
		return false, err
	}

	expiresAt := e.now().Add(e.config.OTPTTL)
	if err := e.repo.Accounts().SetEmailVerificationOTP(ctx, account.ID, otp, expiresAt); err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to store verification code")
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", otp, e.config.OTPTTL)
	if err := e.dispatch.Send(ctx, account.Email, "Verify your email", body); err != nil {
		e.logger.Error("verification code dispatch failed", "email", account.Email, "error", err)
		return false, nil
	}

	return true, nil
}

// internalError hides storage and transport failures behind a generic
// message while keeping the cause in the log.
func (e *Engine) internalError(op string, err error) error {
	e.logger.Error("engine internal failure", "op", op, "error", err)
	return errors.Wrap(err, errors.CategoryInternal, "internal error").
		WithCode(errors.CodeInternal)
}
