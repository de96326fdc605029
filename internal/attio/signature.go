package attio

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns lowercase hex of HMAC-SHA256 over body, used for the signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature over the raw body in constant time.
func VerifySignature(secret string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, b)
}
