package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	minNameLength     = 2
	maxNameLength     = 50
	passcodeDigits    = 6
)

// sanitize trims input and strips angle brackets.
func sanitize(value string) string {
	value = strings.TrimSpace(value)
	return strings.NewReplacer("<", "", ">", "").Replace(value)
}

func normalizeEmail(email string) string {
	return sanitize(strings.ToLower(email))
}

func validEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRegex.MatchString(email)
}

// checkPassword returns a user-facing reason when password fails the policy.
func checkPassword(password string) (string, bool) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "Password must be at least 8 characters long", false
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !lower:
		return "Password must contain at least one lowercase letter", false
	case !upper:
		return "Password must contain at least one uppercase letter", false
	case !digit:
		return "Password must contain at least one number", false
	}
	return "", true
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func generatePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate passcode: %w", err)
	}
	return fmt.Sprintf("%0*d", passcodeDigits, n.Int64()+100000), nil
}
