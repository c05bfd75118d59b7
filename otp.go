package auth

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/goliatone/go-errors"
)

const refreshTokenBytes = 32

// GenerateOTP returns a numeric code of exactly the given number of
// digits, drawn from a CSPRNG. Digits are sampled independently so
// the distribution stays uniform.
func GenerateOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("otp digits must be between 4 and 10", errors.CategoryBadInput)
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "otp generation failed")
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// GenerateRefreshTokenValue returns an opaque, unguessable token
// value. It carries no claims, it is a capability reference resolved
// through storage.
func GenerateRefreshTokenValue() (string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "refresh token generation failed")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
