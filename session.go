package auth

import (
	"time"

	"github.com/google/uuid"
)

// RegisterResult is returned from a successful registration. It never
// carries the password or its hash.
type RegisterResult struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResult is returned by the operations that establish a session:
// login and email verification. Account carries only public profile
// fields thanks to the model's json tags.
type AuthResult struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Account          *Account  `json:"account"`
}

// RefreshResult is returned by a token refresh. The refresh token
// itself is not rotated, only a new access token is issued.
type RefreshResult struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// ForgotPasswordACK is the body returned by ForgotPassword. It is
// byte for byte identical whether or not the email exists.
const ForgotPasswordACK = "If that email is registered, a reset code has been sent."
