package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	auth "github.com/castellan/go-auth"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// fakeAccounts is an in-memory Accounts store with the same atomic
// semantics as the SQL implementation.
type fakeAccounts struct {
	mu      sync.Mutex
	records map[uuid.UUID]*auth.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{records: map[uuid.UUID]*auth.Account{}}
}

func notFound() error {
	return repository.NewRecordNotFound()
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil, notFound()
	}
	clone := *acc
	return &clone, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acc := range f.records {
		if acc.Email == email && acc.DeletedAt == nil {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, notFound()
}

func (f *fakeAccounts) Create(_ context.Context, record *auth.Account) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))
	for _, acc := range f.records {
		if acc.Email == record.Email && acc.DeletedAt == nil {
			return nil, errors.New("unique constraint violation: email")
		}
	}
	if record.Status == "" {
		record.Status = auth.StatusPending
	}
	if record.Role == "" {
		record.Role = auth.RoleStandard
	}
	now := time.Now()
	record.CreatedAt = &now
	clone := *record
	f.records[record.ID] = &clone
	return record, nil
}

func (f *fakeAccounts) CreateTx(ctx context.Context, _ bun.IDB, record *auth.Account) (*auth.Account, error) {
	return f.Create(ctx, record)
}

func (f *fakeAccounts) Update(_ context.Context, record *auth.Account) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[record.ID]; !ok {
		return nil, notFound()
	}
	clone := *record
	f.records[record.ID] = &clone
	return record, nil
}

func (f *fakeAccounts) List(_ context.Context, limit, offset int) ([]*auth.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*auth.Account
	for _, acc := range f.records {
		if acc.DeletedAt == nil {
			clone := *acc
			all = append(all, &clone)
		}
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeAccounts) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil
	}
	now := time.Now()
	acc.DeletedAt = &now
	acc.Status = auth.StatusDeactivated
	return nil
}

func (f *fakeAccounts) RecordFailedLogin(_ context.Context, id uuid.UUID, policy auth.LockoutPolicy) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil, notFound()
	}
	acc.FailedLoginAttempts++
	if acc.FailedLoginAttempts >= policy.Threshold {
		until := time.Now().Add(policy.Duration)
		acc.LockoutUntil = &until
	}
	clone := *acc
	return &clone, nil
}

func (f *fakeAccounts) TrackSuccessfulLogin(_ context.Context, id uuid.UUID) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil, notFound()
	}
	now := time.Now()
	acc.LastLoginAt = &now
	acc.FailedLoginAttempts = 0
	acc.LockoutUntil = nil
	clone := *acc
	return &clone, nil
}

func (f *fakeAccounts) SetEmailVerificationOTP(_ context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return notFound()
	}
	acc.EmailOTP = otp
	acc.EmailOTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeAccounts) VerifyEmailOTP(_ context.Context, email, otp string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acc := range f.records {
		if acc.Email != email || acc.DeletedAt != nil {
			continue
		}
		if acc.EmailOTP == "" || acc.EmailOTP != otp {
			return nil, notFound()
		}
		if acc.EmailOTPExpiresAt == nil || !acc.EmailOTPExpiresAt.After(time.Now()) {
			return nil, notFound()
		}
		acc.EmailVerified = true
		if acc.Status == auth.StatusPending {
			acc.Status = auth.StatusActive
		}
		acc.EmailOTP = ""
		acc.EmailOTPExpiresAt = nil
		clone := *acc
		return &clone, nil
	}
	return nil, notFound()
}

func (f *fakeAccounts) SetPasswordResetOTP(_ context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return notFound()
	}
	acc.ResetOTP = otp
	acc.ResetOTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeAccounts) ResetPasswordByOTP(_ context.Context, email, otp, passwordHash string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acc := range f.records {
		if acc.Email != email || acc.DeletedAt != nil {
			continue
		}
		if acc.ResetOTP == "" || acc.ResetOTP != otp {
			return nil, notFound()
		}
		if acc.ResetOTPExpiresAt == nil || !acc.ResetOTPExpiresAt.After(time.Now()) {
			return nil, notFound()
		}
		acc.PasswordHash = passwordHash
		acc.ResetOTP = ""
		acc.ResetOTPExpiresAt = nil
		clone := *acc
		return &clone, nil
	}
	return nil, notFound()
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return notFound()
	}
	acc.PasswordHash = passwordHash
	return nil
}

func (f *fakeAccounts) UpdateRole(_ context.Context, id uuid.UUID, role auth.Role) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil, notFound()
	}
	acc.Role = role
	clone := *acc
	return &clone, nil
}

func (f *fakeAccounts) UpdateStatus(_ context.Context, id uuid.UUID, status auth.AccountStatus) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.records[id]
	if !ok || acc.DeletedAt != nil {
		return nil, notFound()
	}
	acc.Status = status
	clone := *acc
	return &clone, nil
}

func (f *fakeAccounts) Statistics(_ context.Context) (*auth.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &auth.Statistics{}
	now := time.Now()
	for _, acc := range f.records {
		if acc.DeletedAt != nil {
			continue
		}
		stats.TotalAccounts++
		switch acc.Status {
		case auth.StatusActive:
			stats.ActiveAccounts++
		case auth.StatusPending:
			stats.PendingAccounts++
		case auth.StatusSuspended:
			stats.SuspendedAccounts++
		}
		if !acc.EmailVerified {
			stats.UnverifiedAccounts++
		}
		if acc.Role == auth.RoleAdmin {
			stats.Administrators++
		}
		if acc.LockedAt(now) {
			stats.LockedAccounts++
		}
		if acc.LastLoginAt != nil && acc.LastLoginAt.After(now.Add(-24*time.Hour)) {
			stats.RecentLogins++
		}
	}
	return stats, nil
}

// get returns the live record for assertions.
func (f *fakeAccounts) get(id uuid.UUID) *auth.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

// fakeRefreshTokens is an in-memory RefreshTokens store.
type fakeRefreshTokens struct {
	mu      sync.Mutex
	records map[string]*auth.RefreshToken
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{records: map[string]*auth.RefreshToken{}}
}

func (f *fakeRefreshTokens) Create(_ context.Context, record *auth.RefreshToken) (*auth.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	record.CreatedAt = &now
	clone := *record
	f.records[record.Token] = &clone
	return record, nil
}

func (f *fakeRefreshTokens) GetByToken(_ context.Context, token string) (*auth.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[token]
	if !ok {
		return nil, notFound()
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRefreshTokens) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[token]
	if !ok || record.IsRevoked {
		return nil
	}
	now := time.Now()
	record.IsRevoked = true
	record.RevokedAt = &now
	return nil
}

func (f *fakeRefreshTokens) RevokeAllForAccount(_ context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, record := range f.records {
		if record.AccountID == accountID && !record.IsRevoked {
			record.IsRevoked = true
			record.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeRefreshTokens) get(token string) *auth.RefreshToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[token]
}

func (f *fakeRefreshTokens) activeCount(accountID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, record := range f.records {
		if record.AccountID == accountID && !record.IsRevoked {
			n++
		}
	}
	return n
}

// fakeAudit appends entries in memory.
type fakeAudit struct {
	mu      sync.Mutex
	entries []*auth.AuditEntry
}

func (f *fakeAudit) Append(_ context.Context, entry *auth.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) byAction(action string) []*auth.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*auth.AuditEntry
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// fakeRepo wires the fakes behind the RepositoryManager contract.
type fakeRepo struct {
	accounts      *fakeAccounts
	refreshTokens *fakeRefreshTokens
	audit         *fakeAudit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:      newFakeAccounts(),
		refreshTokens: newFakeRefreshTokens(),
		audit:         &fakeAudit{},
	}
}

func (f *fakeRepo) Accounts() auth.Accounts           { return f.accounts }
func (f *fakeRepo) RefreshTokens() auth.RefreshTokens { return f.refreshTokens }
func (f *fakeRepo) Audit() auth.AuditLog              { return f.audit }
func (f *fakeRepo) Validate() error                   { return nil }
func (f *fakeRepo) MustValidate()                     {}

func (f *fakeRepo) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

// captureDispatcher stores everything the engine asked to send.
type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

type captureDispatcher struct {
	mu       sync.Mutex
	messages []sentMessage
	fail     bool
}

func (d *captureDispatcher) Send(_ context.Context, recipient, subject, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("smtp unavailable")
	}
	d.messages = append(d.messages, sentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (d *captureDispatcher) last() (sentMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) == 0 {
		return sentMessage{}, false
	}
	return d.messages[len(d.messages)-1], true
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

func testConfig() auth.Config {
	cfg := auth.DefaultConfig("test-signing-key")
	cfg.LockoutThreshold = 3
	cfg.CookieSecure = false
	return cfg
}

func newTestEngine(repo *fakeRepo, cfg auth.Config, dispatch *captureDispatcher) *auth.Engine {
	engine := auth.NewEngine(repo, cfg).
		WithLogger(testLogger{}).
		WithAuditRecorder(auth.NewAuditRecorder(repo.audit, testLogger{}))
	if dispatch != nil {
		engine = engine.WithDispatcher(dispatch)
	}
	return engine
}

// otpFromBody digs the numeric code out of a dispatched message body.
func otpFromBody(body string) string {
	fields := strings.Fields(body)
	for _, f := range fields {
		trimmed := strings.TrimSuffix(f, ".")
		if len(trimmed) >= 4 && len(trimmed) <= 10 && isDigits(trimmed) {
			return trimmed
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
