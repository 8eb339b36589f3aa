package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// FreshnessWindow is the maximum allowed skew between the request timestamp
// and server time. Requests outside the window are rejected as stale or
// replayed. Slack documents five minutes.
const FreshnessWindow = 5 * time.Minute

const signaturePrefix = "v0="

// Sign computes the Slack-style request signature for a timestamp and raw
// body: "v0=" + hex(HMAC-SHA256(secret, "v0:<timestamp>:<body>")).
//
// The body must be the exact bytes on the wire. Re-serializing a parsed
// structure changes whitespace and key order and breaks the comparison.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("v0:"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is a valid signature for the given
// timestamp and body. A malformed timestamp, a timestamp more than
// FreshnessWindow from now (past or future), or a mismatched digest all
// return false. Callers must treat false as "reject the request".
func Verify(secret []byte, timestamp, signature string, body []byte) bool {
	return VerifyAt(secret, timestamp, signature, body, time.Now())
}

// VerifyAt is Verify with an explicit clock, for tests.
func VerifyAt(secret []byte, timestamp, signature string, body []byte, now time.Time) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(FreshnessWindow/time.Second) {
		return false
	}

	expected := Sign(secret, timestamp, body)

	// Constant-time comparison. A naive == would leak how many leading
	// bytes of the digest matched.
	return hmac.Equal([]byte(expected), []byte(signature))
}
