package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role
type Role string

const (
	// RoleStandard is a regular account (i.e. self service only)
	RoleStandard Role = "standard"
	// RoleAdmin is an administrator (i.e. manage other accounts)
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleStandard, RoleAdmin:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

var roleLevels = map[Role]int{
	RoleStandard: 1,
	RoleAdmin:    2,
}

// IsAtLeast reports whether r ranks at or above min in the role
// hierarchy. Unknown roles rank below every known role.
func (r Role) IsAtLeast(min Role) bool {
	return roleLevels[r] >= roleLevels[min] && roleLevels[r] > 0
}

// AccountStatus is the account's lifecycle status
type AccountStatus string

const (
	// StatusPending is a new account awaiting email verification
	StatusPending AccountStatus = "pending"
	// StatusActive is a verified account
	StatusActive AccountStatus = "active"
	// StatusSuspended is an account blocked by an administrator
	StatusSuspended AccountStatus = "suspended"
	// StatusDeactivated is a soft deleted account
	StatusDeactivated AccountStatus = "deactivated"
)

// Account is the account model
type Account struct {
	bun.BaseModel       `bun:"table:accounts,alias:acc"`
	ID                  uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email               string        `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash        string        `bun:"password_hash,notnull" json:"-"`
	FirstName           string        `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName            string        `bun:"last_name,notnull" json:"last_name,omitempty"`
	Phone               string        `bun:"phone_number" json:"phone_number,omitempty"`
	Country             string        `bun:"country" json:"country,omitempty"`
	Locale              string        `bun:"locale" json:"locale,omitempty"`
	AvatarURL           string        `bun:"avatar_url" json:"avatar_url,omitempty"`
	Role                Role          `bun:"account_role,notnull" json:"account_role,omitempty"`
	Status              AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	EmailVerified       bool          `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	EmailOTP            string        `bun:"email_otp,nullzero" json:"-"`
	EmailOTPExpiresAt   *time.Time    `bun:"email_otp_expires_at,nullzero" json:"-"`
	ResetOTP            string        `bun:"reset_otp,nullzero" json:"-"`
	ResetOTPExpiresAt   *time.Time    `bun:"reset_otp_expires_at,nullzero" json:"-"`
	FailedLoginAttempts int           `bun:"failed_login_attempts" json:"-"`
	LockoutUntil        *time.Time    `bun:"lockout_until,nullzero" json:"-"`
	LastLoginAt         *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt           *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt           *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// LockedAt reports whether the account is locked out at the given time.
// A lockout timestamp in the past does not count as locked.
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockoutUntil != nil && a.LockoutUntil.After(now)
}

// FullName is the account's display name.
func (a *Account) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// RefreshToken is an opaque long lived credential bound to one account.
// Rows are never mutated after creation except to mark revocation.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	IsRevoked     bool       `bun:"is_revoked" json:"is_revoked,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ValidAt reports whether the token is usable at the given time.
func (t *RefreshToken) ValidAt(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// Audit action tags. One entry per authentication relevant operation.
const (
	AuditUserRegistered         = "USER_REGISTERED_OTP_SENT"
	AuditEmailVerified          = "EMAIL_VERIFIED"
	AuditLoginFailed            = "LOGIN_FAILED"
	AuditLoginBlockedLockout    = "LOGIN_BLOCKED_LOCKOUT"
	AuditLoginSuccess           = "LOGIN_SUCCESS"
	AuditPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	AuditPasswordResetSuccess   = "PASSWORD_RESET_SUCCESS"
	AuditPasswordChanged        = "PASSWORD_CHANGED"
	AuditLogout                 = "LOGOUT"
	AuditRoleUpdated            = "ROLE_UPDATED"
	AuditAccountDeactivated     = "ACCOUNT_DEACTIVATED"
)

// AuditEntry is an append only security event record. AccountID is nil
// when the actor is unauthenticated, e.g. a failed login with an
// unknown email.
type AuditEntry struct {
	bun.BaseModel `bun:"table:audit_entries,alias:aud"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID `bun:"account_id,nullzero,type:uuid" json:"account_id,omitempty"`
	Action        string     `bun:"action,notnull" json:"action,omitempty"`
	IP            string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	Detail        string     `bun:"detail" json:"detail,omitempty"`
	Success       bool       `bun:"success" json:"success"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Statistics is the aggregate snapshot returned by the admin stats endpoint.
type Statistics struct {
	TotalAccounts      int `json:"total_accounts"`
	ActiveAccounts     int `json:"active_accounts"`
	PendingAccounts    int `json:"pending_accounts"`
	SuspendedAccounts  int `json:"suspended_accounts"`
	UnverifiedAccounts int `json:"unverified_accounts"`
	Administrators     int `json:"administrators"`
	LockedAccounts     int `json:"locked_accounts"`
	RecentLogins       int `json:"recent_logins"`
}
