package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPINLength is used when no length is configured.
const DefaultPINLength = 4

// VerificationAlphabet omits I, O, 0 and 1 so codes survive being retyped by hand.
const VerificationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// HashPIN hashes a plaintext PIN with configured cost.
func HashPIN(pin string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePIN verifies a PIN against its hashed value.
func ComparePIN(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// GeneratePIN returns a uniformly random numeric PIN of exactly length digits,
// drawn from [10^(length-1), 10^length - 1].
func GeneratePIN(length int) (string, error) {
	if length <= 0 {
		length = DefaultPINLength
	}
	if length > 18 {
		return "", errors.New("pin length too large")
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	high := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	span := new(big.Int).Sub(high, low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return n.Add(n, low).String(), nil
}

// Supplied PINs are bounded well under bcrypt's 72 byte input limit.
const (
	MinPINLength = 4
	MaxPINLength = 12
)

// ValidPIN reports whether pin is MinPINLength to MaxPINLength digits.
func ValidPIN(pin string) bool {
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GenerateCode returns a random code of length characters drawn from alphabet.
func GenerateCode(alphabet string, length int) (string, error) {
	if alphabet == "" || length <= 0 {
		return "", errors.New("invalid code parameters")
	}
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
