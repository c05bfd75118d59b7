package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated: the same opaque value stays
// usable until its original expiry or explicit revocation, so two
// concurrent refreshes with the same token both succeed.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthorized
	}

	record, err := e.repo.RefreshTokens().GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, e.internalError("refresh", err)
	}

	if !record.ValidAt(e.now()) {
		return nil, ErrUnauthorized
	}

	account, err := e.repo.Accounts().GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, e.internalError("refresh", err)
	}

	access, expiresAt, err := e.tokens.IssueAccessToken(account)
	if err != nil {
		return nil, e.internalError("refresh", err)
	}

	return &RefreshResult{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
	}, nil
}

// CurrentAccount resolves the account behind validated access token
// claims. A stale token whose account is gone maps to NotFound.
func (e *Engine) CurrentAccount(ctx context.Context, claims AuthClaims) (*Account, error) {
	if claims == nil {
		return nil, ErrUnauthorized
	}

	id, err := claims.AccountID()
	if err != nil || id == uuid.Nil {
		return nil, ErrUnauthorized
	}

	account, err := e.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, e.internalError("current account", err)
	}

	return account, nil
}
