package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Initialize hash salt for all tests in this package.
	InitHashSaltForTesting("test-salt-for-unit-tests-minimum-32-chars")
	os.Exit(m.Run())
}

func TestHashID(t *testing.T) {
	t.Run("produces consistent hash for same ID", func(t *testing.T) {
		require.Equal(t, HashID("user_123"), HashID("user_123"))
	})

	t.Run("produces different hashes for different IDs", func(t *testing.T) {
		require.NotEqual(t, HashID("user_123"), HashID("user_456"))
	})

	t.Run("produces 8 character hash", func(t *testing.T) {
		require.Len(t, HashID("user_123"), 8)
	})

	t.Run("marks empty ID", func(t *testing.T) {
		require.Equal(t, "<empty>", HashID(""))
	})

	t.Run("changes hash when salt changes", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		hash1 := HashID("user_123")
		hashSalt = "different-salt"
		hash2 := HashID("user_123")

		require.NotEqual(t, hash1, hash2)
	})
}

func TestHashEmail(t *testing.T) {
	t.Run("ignores case and surrounding space", func(t *testing.T) {
		require.Equal(t, HashEmail("ada@uni.edu"), HashEmail("  ADA@Uni.EDU "))
	})

	t.Run("never contains the address", func(t *testing.T) {
		require.NotContains(t, HashEmail("ada@uni.edu"), "ada")
	})
}

func TestSanitizeDescription(t *testing.T) {
	t.Run("redacts empty description", func(t *testing.T) {
		require.Equal(t, "<empty>", SanitizeDescription(""))
	})

	t.Run("preserves length information for debugging", func(t *testing.T) {
		result := SanitizeDescription("pizza for general meeting")
		require.Contains(t, result, "4 words")
		require.Contains(t, result, "25 chars")
		require.NotContains(t, result, "pizza")
	})
}

func TestSanitizeText(t *testing.T) {
	t.Run("redacts empty text", func(t *testing.T) {
		require.Equal(t, "<empty>", SanitizeText(""))
	})

	t.Run("shows length for short text", func(t *testing.T) {
		require.Equal(t, "<5 chars>", SanitizeText("short"))
	})

	t.Run("shows prefix for longer text", func(t *testing.T) {
		result := SanitizeText("this is a long text")
		require.Contains(t, result, "thi...")
		require.Contains(t, result, "19 chars")
	})
}

func TestInitHashSalt(t *testing.T) {
	t.Run("fails when LOG_HASH_SALT is missing", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		t.Setenv("LOG_HASH_SALT", "")
		require.ErrorIs(t, InitHashSalt(), ErrWeakHashSalt)
	})

	t.Run("fails when LOG_HASH_SALT is too short", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		t.Setenv("LOG_HASH_SALT", "short")
		require.ErrorIs(t, InitHashSalt(), ErrWeakHashSalt)
	})

	t.Run("succeeds with valid LOG_HASH_SALT", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		validSalt := "this-is-a-valid-salt-with-at-least-32-characters"
		t.Setenv("LOG_HASH_SALT", validSalt)

		require.NoError(t, InitHashSalt())
		require.Equal(t, validSalt, hashSalt)
	})
}
