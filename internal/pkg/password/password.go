package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const cost = 12 // bcrypt cost factor

// ErrWeakPassword is returned when a password fails the platform policy.
var ErrWeakPassword = errors.New("password must be 8-20 characters with at least one uppercase, one lowercase, one number and one special character")

// Hash hashes password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// Verify compares password with hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPolicy validates the password against the platform policy:
// 8-20 characters, at least one uppercase, lowercase, digit and special char.
func CheckPolicy(password string) error {
	if len(password) < 8 || len(password) > 20 {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}
