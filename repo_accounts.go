package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var RecordFailedLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"failed_login_attempts" = "acc"."failed_login_attempts" + 1,
	"lockout_until" = CASE
		WHEN "acc"."failed_login_attempts" + 1 >= ? THEN ?
		ELSE "acc"."lockout_until"
	END,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var TrackSuccessfulLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"last_login_at" = ?,
	"failed_login_attempts" = 0,
	"lockout_until" = NULL,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var SetEmailOTPSQL = `UPDATE "accounts" AS "acc"
SET
	"email_otp" = ?,
	"email_otp_expires_at" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var VerifyEmailOTPSQL = `UPDATE "accounts" AS "acc"
SET
	"is_email_verified" = TRUE,
	"status" = CASE WHEN "acc"."status" = 'pending' THEN 'active' ELSE "acc"."status" END,
	"email_otp" = NULL,
	"email_otp_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."email" = ?
AND "acc"."email_otp" = ?
AND "acc"."email_otp_expires_at" > ?
RETURNING *;`

var SetResetOTPSQL = `UPDATE "accounts" AS "acc"
SET
	"reset_otp" = ?,
	"reset_otp_expires_at" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var ResetPasswordByOTPSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"reset_otp" = NULL,
	"reset_otp_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."email" = ?
AND "acc"."reset_otp" = ?
AND "acc"."reset_otp_expires_at" > ?
RETURNING *;`

var UpdatePasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var AccountStatisticsSQL = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN "status" = 'active' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "status" = 'pending' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "status" = 'suspended' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "is_email_verified" = FALSE THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "account_role" = 'admin' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "lockout_until" IS NOT NULL AND "lockout_until" > ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN "last_login_at" IS NOT NULL AND "last_login_at" > ? THEN 1 ELSE 0 END), 0)
FROM "accounts"
WHERE "deleted_at" IS NULL;`

// LockoutPolicy is the repository side of the lockout rule: the
// attempt threshold and how long a triggered lockout lasts.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// Accounts is the durable store for accounts. The failed login
// counter, OTP verification and password reset operate as single
// atomic statements so concurrent requests cannot under count or
// double spend a code.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	Update(ctx context.Context, record *Account) (*Account, error)
	List(ctx context.Context, limit, offset int) ([]*Account, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	RecordFailedLogin(ctx context.Context, id uuid.UUID, policy LockoutPolicy) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) (*Account, error)

	SetEmailVerificationOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error
	VerifyEmailOTP(ctx context.Context, email, otp string) (*Account, error)
	SetPasswordResetOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error
	ResetPasswordByOTP(ctx context.Context, email, otp, passwordHash string) (*Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)

	Statistics(ctx context.Context) (*Statistics, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.Repository.GetByID(ctx, id.String())
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *accounts) Update(ctx context.Context, record *Account) (*Account, error) {
	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (a *accounts) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*Account
	total, err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SoftDelete marks the account deactivated and sets the soft delete
// timestamp. The row stays in place for audit and foreign keys.
func (a *accounts) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("status = ?", StatusDeactivated).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (a *accounts) RecordFailedLogin(ctx context.Context, id uuid.UUID, policy LockoutPolicy) (*Account, error) {
	now := time.Now()
	until := now.Add(policy.Duration)
	return a.rawOne(ctx, RecordFailedLoginSQL, policy.Threshold, until, now, id.String())
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) (*Account, error) {
	now := time.Now()
	return a.rawOne(ctx, TrackSuccessfulLoginSQL, now, now, id.String())
}

func (a *accounts) SetEmailVerificationOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	_, err := a.rawOne(ctx, SetEmailOTPSQL, otp, expiresAt, time.Now(), id.String())
	return err
}

// VerifyEmailOTP matches and clears the verification code in a single
// statement. A mismatch and an expired code are indistinguishable to
// the caller.
func (a *accounts) VerifyEmailOTP(ctx context.Context, email, otp string) (*Account, error) {
	now := time.Now()
	return a.rawOne(ctx, VerifyEmailOTPSQL, now, strings.ToLower(strings.TrimSpace(email)), otp, now)
}

func (a *accounts) SetPasswordResetOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	_, err := a.rawOne(ctx, SetResetOTPSQL, otp, expiresAt, time.Now(), id.String())
	return err
}

// ResetPasswordByOTP verifies the reset code, clears it and writes the
// new hash in one atomic statement.
func (a *accounts) ResetPasswordByOTP(ctx context.Context, email, otp, passwordHash string) (*Account, error) {
	now := time.Now()
	return a.rawOne(ctx, ResetPasswordByOTPSQL, passwordHash, now, strings.ToLower(strings.TrimSpace(email)), otp, now)
}

func (a *accounts) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := a.rawOne(ctx, UpdatePasswordSQL, passwordHash, time.Now(), id.String())
	return err
}

func (a *accounts) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*Account, error) {
	record := &Account{
		ID:   id,
		Role: role,
	}
	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

func (a *accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error) {
	record := &Account{
		ID:     id,
		Status: status,
	}
	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

// Statistics aggregates the dashboard counters in one query. Recent
// logins cover the trailing 24 hours.
func (a *accounts) Statistics(ctx context.Context) (*Statistics, error) {
	now := time.Now()
	stats := &Statistics{}
	err := a.db.NewRaw(AccountStatisticsSQL, now, now.Add(-24*time.Hour)).Scan(ctx,
		&stats.TotalAccounts,
		&stats.ActiveAccounts,
		&stats.PendingAccounts,
		&stats.SuspendedAccounts,
		&stats.UnverifiedAccounts,
		&stats.Administrators,
		&stats.LockedAccounts,
		&stats.RecentLogins,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *accounts) rawOne(ctx context.Context, query string, args ...any) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, query, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	if record.Role == "" {
		record.Role = RoleStandard
	}

	if record.Status == "" {
		record.Status = StatusPending
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
