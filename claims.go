package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims is the decoded view of a validated access token.
type AuthClaims interface {
	Subject() string
	AccountID() (uuid.UUID, error)
	Email() string
	Role() Role
	IsAtLeast(min Role) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the concrete JWT claim set for access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	AccountEmail string `json:"email,omitempty"`
	AccountRole  string `json:"role,omitempty"`
}

var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID parses the account id out of the claims. UID takes
// precedence over the subject when both are set.
func (c *AccessClaims) AccountID() (uuid.UUID, error) {
	id := c.UID
	if id == "" {
		id = c.Subject()
	}
	return uuid.Parse(id)
}

// Email returns the account email claim
func (c *AccessClaims) Email() string {
	return c.AccountEmail
}

// Role returns the account role claim
func (c *AccessClaims) Role() Role {
	return Role(c.AccountRole)
}

// IsAtLeast checks the role claim against the role hierarchy
func (c *AccessClaims) IsAtLeast(min Role) bool {
	return c.Role().IsAtLeast(min)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
