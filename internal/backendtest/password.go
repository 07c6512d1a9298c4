package backendtest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// hashPassword generates a salted Argon2id hash of the password.
func hashPassword(password string) (hash, salt string, err error) {
	rawSalt := make([]byte, 16)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}
	sum := argon2.IDKey([]byte(password), rawSalt, 1, 64*1024, 4, 32)
	return base64.StdEncoding.EncodeToString(sum), base64.StdEncoding.EncodeToString(rawSalt), nil
}

func verifyPassword(password, salt, hash string) (bool, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	decodedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}
	sum := argon2.IDKey([]byte(password), decodedSalt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(decodedHash, sum) == 1, nil
}
