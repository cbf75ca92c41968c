package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Accepted password lengths, in characters.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 100
)

// ErrPasswordLength is returned for passwords outside [MinPasswordLen, MaxPasswordLen].
var ErrPasswordLength = fmt.Errorf("password must be %d to %d characters", MinPasswordLen, MaxPasswordLen)

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxBytes = 72

// CheckPassword enforces the length policy.
func CheckPassword(plain string) error {
	if n := utf8.RuneCountInString(plain); n < MinPasswordLen || n > MaxPasswordLen {
		return ErrPasswordLength
	}
	return nil
}

// HashPassword returns a bcrypt hash using the given cost.  Inputs longer
// than bcrypt accepts are first reduced with SHA-256.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", errors.New("bcrypt cost out of range")
	}
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash with a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)) == nil
}

func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
