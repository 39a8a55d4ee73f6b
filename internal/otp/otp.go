// Package otp generates HOTP (RFC 4226) and TOTP (RFC 6238) codes for
// credential accounts. Secrets are the usual base32 form found in
// otpauth URLs; whitespace and case are forgiven.
package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/phoenixotp/phoenix/internal/models"
)

const (
	DefaultStep   = 30
	DefaultDigits = 6
)

var ErrInvalidDigits = errors.New("otp digits must be between 1 and 10")

func hashFunc(a models.Algorithm) func() hash.Hash {
	switch a {
	case models.AlgorithmSHA256:
		return sha256.New
	case models.AlgorithmSHA512:
		return sha512.New
	default:
		// AlgorithmDefault and AlgorithmSHA1
		return sha1.New
	}
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	normalized = strings.TrimRight(normalized, "=")
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid base32 secret: %w", err)
	}
	return key, nil
}

// ValidSecret reports whether the secret decodes as base32.
func ValidSecret(secret string) bool {
	key, err := decodeSecret(secret)
	return err == nil && len(key) > 0
}

// GenerateHOTP computes the HOTP code for one counter value.
func GenerateHOTP(secret string, digits int, counter uint64, alg models.Algorithm) (string, error) {
	if digits <= 0 {
		digits = DefaultDigits
	}
	if digits > 10 {
		return "", ErrInvalidDigits
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	mac := hmac.New(hashFunc(alg), key)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// dynamic truncation, RFC 4226 §5.3
	offset := sum[len(sum)-1] & 0x0f
	code := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, code%mod), nil
}

// GenerateTOTP computes the TOTP code for the given instant.
func GenerateTOTP(secret string, digits int, step int, alg models.Algorithm, at time.Time) (string, error) {
	if step <= 0 {
		step = DefaultStep
	}
	counter := uint64(at.Unix() / int64(step))
	return GenerateHOTP(secret, digits, counter, alg)
}
