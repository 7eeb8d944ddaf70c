package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const tokenRawSize = 32

// NewToken returns a fresh opaque session token: 32 bytes (256 bits) from
// crypto/rand, base64url without padding.
func NewToken() (string, error) {
	var raw [tokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken reduces a presented token to the 32-byte digest persisted by the
// account store. Tokens are never stored or logged in plaintext.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// HashCode hashes a one-time code for storage and comparison.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// NewOTP generates a numeric one-time code of the given length. Each digit is
// drawn independently from crypto/rand so the result is uniform over
// 10^digits, including leading zeros.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// IsNumeric reports whether s is non-empty and all ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
