// Package signature implements HMAC-SHA256 webhook signature verification
// in the GitHub X-Hub-Signature-256 format.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Prefix is the required signature header scheme.
const Prefix = "sha256="

// Verify reports whether header carries a valid HMAC-SHA256 signature of
// body under secret.
//
// The header must have the form "sha256=<hex>". Uses constant-time
// comparison (crypto/subtle) to prevent timing attacks. Never returns an
// error: a malformed header, a decode failure, and a mismatch are all just
// "not verified".
func Verify(secret, header string, body []byte) bool {
	if secret == "" || !strings.HasPrefix(header, Prefix) {
		return false
	}

	presented, err := hex.DecodeString(strings.TrimPrefix(header, Prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expected, presented) == 1
}

// Compute returns the hex-encoded HMAC-SHA256 of body under secret.
// Used by tests and diagnostic tooling.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Format renders a hex digest as a signature header value.
func Format(hexDigest string) string {
	return Prefix + hexDigest
}
