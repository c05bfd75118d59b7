package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var RevokeRefreshTokenSQL = `UPDATE "refresh_tokens" AS "rtk"
SET
	"is_revoked" = TRUE,
	"revoked_at" = ?
WHERE
	"rtk"."token" = ?
AND "rtk"."is_revoked" = FALSE;`

var RevokeAccountTokensSQL = `UPDATE "refresh_tokens" AS "rtk"
SET
	"is_revoked" = TRUE,
	"revoked_at" = ?
WHERE
	"rtk"."account_id" = ?
AND "rtk"."is_revoked" = FALSE;`

// RefreshTokens stores opaque refresh tokens. Tokens are immutable
// after creation except for revocation, which is idempotent.
type RefreshTokens interface {
	Create(ctx context.Context, record *RefreshToken) (*RefreshToken, error)
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) Create(ctx context.Context, record *RefreshToken) (*RefreshToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record)
}

func (r *refreshTokens) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

// Revoke marks the token revoked. Revoking an unknown or already
// revoked token is a no-op.
func (r *refreshTokens) Revoke(ctx context.Context, token string) error {
	_, err := r.db.NewRaw(RevokeRefreshTokenSQL, time.Now(), token).Exec(ctx)
	return err
}

func (r *refreshTokens) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.NewRaw(RevokeAccountTokensSQL, time.Now(), accountID).Exec(ctx)
	return err
}
