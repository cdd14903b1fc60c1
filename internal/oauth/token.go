package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// tokenByteLength is the size of the random token this server mints
// before hashing; 256 bits of entropy per the bearer-token guidance in
// RFC 6749 §10.10.
const tokenByteLength = 32

// newToken mints a fresh random token and returns both the plaintext
// (returned to the caller exactly once) and its at-rest hash.
func newToken() (plaintext, hash string, err error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = base64.RawURLEncoding.EncodeToString(buf)
	return plaintext, hashToken(plaintext), nil
}

// hashToken computes the SHA-256 base64url hash a token or client
// secret is persisted under; plaintext never reaches storage.
func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// secretMatches compares a presented client secret against its stored
// hash in constant time, so a timing side channel can't narrow down a
// correct secret byte by byte.
func secretMatches(presented, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashToken(presented)), []byte(storedHash)) == 1
}
