package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/darulhuda/madrasa/core"
)

// StudentEmailDomain is appended to identifiers that are not email addresses.
var StudentEmailDomain = "student.com"

// NormalizeIdentifier turns a mobile number (or any identifier without "@") into the login email
// the identity provider knows it by. Anything else is returned as is; no other validation happens here.
func NormalizeIdentifier(identifier string) string {
	s := strings.TrimSpace(identifier)
	if (len(s) == 11 && core.IsAllDigits(s)) || !strings.Contains(s, "@") {
		return s + "@" + StudentEmailDomain
	}
	return s
}

// LockoutKey is the per-account key failed attempts are counted under.
func LockoutKey(identifier string) string {
	return strings.ToLower(NormalizeIdentifier(identifier))
}

// SecretMatches compares a role record secret with the one supplied at login.
// bcrypt hashes are supported next to the legacy plaintext values.
func SecretMatches(stored, given string) bool {
	if stored == "" {
		return false
	}
	if IsHashedSecret(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func IsHashedSecret(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashSecret returns the bcrypt hash of secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
