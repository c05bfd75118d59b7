package auth

import (
	"os"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds every tunable the engine and token service need. It is
// passed explicitly to constructors, never read from globals, so tests
// can vary policy per case.
type Config struct {
	SigningKey    string
	SigningMethod string
	Issuer        string
	Audience      []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTPLength int
	OTPTTL    time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	// CookieName is the refresh token cookie. CookieSecure should only
	// be disabled for local development over plain HTTP.
	CookieName   string
	CookieSecure bool
}

// DefaultConfig returns a Config with production defaults and the
// given signing key.
func DefaultConfig(signingKey string) Config {
	return Config{
		SigningKey:       signingKey,
		SigningMethod:    "HS256",
		Issuer:           "go-auth",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		OTPLength:        6,
		OTPTTL:           15 * time.Minute,
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
		CookieName:       "refreshToken",
		CookieSecure:     true,
	}
}

// ConfigFromEnv loads a .env file if present and builds a Config from
// environment variables, falling back to defaults for anything unset.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig(os.Getenv("AUTH_SIGNING_KEY"))

	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("AUTH_AUDIENCE"); v != "" {
		cfg.Audience = []string{v}
	}
	if d := envDuration("AUTH_ACCESS_TOKEN_TTL"); d > 0 {
		cfg.AccessTokenTTL = d
	}
	if d := envDuration("AUTH_REFRESH_TOKEN_TTL"); d > 0 {
		cfg.RefreshTokenTTL = d
	}
	if d := envDuration("AUTH_OTP_TTL"); d > 0 {
		cfg.OTPTTL = d
	}
	if n := envInt("AUTH_OTP_LENGTH"); n > 0 {
		cfg.OTPLength = n
	}
	if n := envInt("AUTH_LOCKOUT_THRESHOLD"); n > 0 {
		cfg.LockoutThreshold = n
	}
	if d := envDuration("AUTH_LOCKOUT_DURATION"); d > 0 {
		cfg.LockoutDuration = d
	}
	if v := os.Getenv("AUTH_COOKIE_SECURE"); v == "false" {
		cfg.CookieSecure = false
	}

	return cfg
}

// Validate checks the fields the engine cannot run without.
func (c Config) Validate() error {
	if c.SigningKey == "" {
		return errors.New("signing key is required", errors.CategoryBadInput)
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return errors.New("otp length must be between 4 and 10", errors.CategoryBadInput)
	}
	if c.LockoutThreshold < 1 {
		return errors.New("lockout threshold must be positive", errors.CategoryBadInput)
	}
	return nil
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
