package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/castellan/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForgotPasswordIdenticalAcknowledgement(t *testing.T) {
	repo := newFakeRepo()
	dispatch := &captureDispatcher{}
	engine := newTestEngine(repo, testConfig(), dispatch)
	account := registerAndVerify(t, engine, repo)

	known, err := engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	unknown, err := engine.ForgotPassword(context.Background(), "nobody@example.com", testMeta)
	require.NoError(t, err)

	// the caller cannot tell a registered email from an unknown one
	assert.Equal(t, auth.ForgotPasswordACK, known)
	assert.Equal(t, known, unknown)

	record := repo.accounts.get(account.ID)
	require.NotEmpty(t, record.ResetOTP)
	require.NotNil(t, record.ResetOTPExpiresAt)
	assert.True(t, record.ResetOTPExpiresAt.After(time.Now()))

	// only the registered address got a message
	last, ok := dispatch.last()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", last.Recipient)
	assert.Contains(t, last.Body, record.ResetOTP)

	assert.Len(t, repo.audit.byAction(auth.AuditPasswordResetRequested), 1)
}

func TestResetPasswordHappyPath(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	_, err := engine.Login(context.Background(), "alice@example.com", "Passw0rd!Passw0rd!", testMeta)
	require.NoError(t, err)
	require.Equal(t, 1, repo.refreshTokens.activeCount(account.ID))

	_, err = engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	otp := repo.accounts.get(account.ID).ResetOTP
	require.NoError(t, engine.ResetPassword(context.Background(), "alice@example.com", otp, "NewPassw0rd!NewPassw0rd!", testMeta))

	// old password no longer works, the new one does
	_, err = engine.Login(context.Background(), "alice@example.com", "Passw0rd!Passw0rd!", testMeta)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeInvalidCredentials))

	_, err = engine.Login(context.Background(), "alice@example.com", "NewPassw0rd!NewPassw0rd!", testMeta)
	require.NoError(t, err)

	record := repo.accounts.get(account.ID)
	assert.Empty(t, record.ResetOTP)
	assert.Nil(t, record.ResetOTPExpiresAt)

	entries := repo.audit.byAction(auth.AuditPasswordResetSuccess)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	for i := 0; i < 2; i++ {
		_, err := engine.Login(context.Background(), "alice@example.com", "Passw0rd!Passw0rd!", testMeta)
		require.NoError(t, err)
	}
	require.Equal(t, 2, repo.refreshTokens.activeCount(account.ID))

	_, err := engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	otp := repo.accounts.get(account.ID).ResetOTP
	require.NoError(t, engine.ResetPassword(context.Background(), "alice@example.com", otp, "NewPassw0rd!NewPassw0rd!", testMeta))

	assert.Equal(t, 0, repo.refreshTokens.activeCount(account.ID))
}

func TestResetPasswordWrongOTP(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	registerAndVerify(t, engine, repo)

	_, err := engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	err = engine.ResetPassword(context.Background(), "alice@example.com", "000000", "NewPassw0rd!NewPassw0rd!", testMeta)
	require.Error(t, err)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeOTPInvalidOrExpired))

	// password untouched
	_, err = engine.Login(context.Background(), "alice@example.com", "Passw0rd!Passw0rd!", testMeta)
	require.NoError(t, err)
}

func TestResetPasswordExpiredOTP(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	_, err := engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	record := repo.accounts.get(account.ID)
	otp := record.ResetOTP
	past := time.Now().Add(-time.Minute)
	record.ResetOTPExpiresAt = &past

	err = engine.ResetPassword(context.Background(), "alice@example.com", otp, "NewPassw0rd!NewPassw0rd!", testMeta)
	require.Error(t, err)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeOTPInvalidOrExpired))
}

func TestResetPasswordOTPSingleUse(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	_, err := engine.ForgotPassword(context.Background(), "alice@example.com", testMeta)
	require.NoError(t, err)

	otp := repo.accounts.get(account.ID).ResetOTP
	require.NoError(t, engine.ResetPassword(context.Background(), "alice@example.com", otp, "NewPassw0rd!NewPassw0rd!", testMeta))

	err = engine.ResetPassword(context.Background(), "alice@example.com", otp, "AnotherPassw0rd!1234", testMeta)
	require.Error(t, err)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeOTPInvalidOrExpired))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	err := engine.ChangePassword(context.Background(), account.ID, "wrong-password!!!", "NewPassw0rd!NewPassw0rd!", testMeta)
	require.Error(t, err)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeInvalidCredentials))

	_, err = engine.Login(context.Background(), "alice@example.com", "Passw0rd!Passw0rd!", testMeta)
	require.NoError(t, err)
}

func TestChangePasswordSuccess(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo, testConfig(), &captureDispatcher{})
	account := registerAndVerify(t, engine, repo)

	require.NoError(t, engine.ChangePassword(context.Background(), account.ID, "Passw0rd!Passw0rd!", "NewPassw0rd!NewPassw0rd!", testMeta))

	_, err := engine.Login(context.Background(), "alice@example.com", "NewPassw0rd!NewPassw0rd!", testMeta)
	require.NoError(t, err)

	entries := repo.audit.byAction(auth.AuditPasswordChanged)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].AccountID)
	assert.Equal(t, account.ID, *entries[0].AccountID)
}
