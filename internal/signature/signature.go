package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const prefix = "sha256="

// Sign computes the webhook signature header value for body: an HMAC-SHA256
// keyed with secret, hex-encoded and prefixed with "sha256=".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signatureHeader against the HMAC-SHA256 of rawBody. rawBody
// must be the unmodified request bytes; hashing a re-serialized payload would
// break verification for byte-different but semantically identical bodies.
// Returns false on empty secret, missing prefix, or any malformed header.
func Verify(rawBody []byte, signatureHeader string, secret string) bool {
	if secret == "" {
		return false
	}
	sig := strings.TrimSpace(signatureHeader)
	if !strings.HasPrefix(strings.ToLower(sig), prefix) {
		return false
	}
	got, err := hex.DecodeString(sig[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(got, expected) == 1
}
