// Package auth provides the credential primitives for the store: bcrypt
// password hashing and signed, time-limited access tokens.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a raw password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the raw password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
