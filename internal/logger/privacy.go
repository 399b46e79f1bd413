package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MinHashSaltLength is the shortest LOG_HASH_SALT accepted in production.
const MinHashSaltLength = 32

var hashSalt = "unset-salt"

// ErrWeakHashSalt is returned when LOG_HASH_SALT is missing or too short.
var ErrWeakHashSalt = errors.New("LOG_HASH_SALT must be set to at least 32 characters")

// InitHashSalt loads the salt used to pseudonymize identifiers in logs.
func InitHashSalt() error {
	salt := os.Getenv("LOG_HASH_SALT")
	if len(salt) < MinHashSaltLength {
		return ErrWeakHashSalt
	}
	hashSalt = salt
	return nil
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hash(value string) string {
	sum := sha256.Sum256([]byte(value + ":" + hashSalt))
	// First 8 hex chars are enough to correlate log lines.
	return hex.EncodeToString(sum[:])[:8]
}

// HashID creates a privacy-preserving hash of a user or entity ID.
func HashID(id string) string {
	if id == "" {
		return "<empty>"
	}
	return hash(id)
}

// HashEmail hashes an email case-insensitively so variants correlate.
func HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "<empty>"
	}
	return hash(email)
}

// SanitizeDescription removes or truncates sensitive information from descriptions.
// This redacts the description but preserves length information for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}

	wordCount := len(strings.Fields(desc))
	charCount := len(desc)

	return fmt.Sprintf("<redacted: %d words, %d chars>", wordCount, charCount)
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
