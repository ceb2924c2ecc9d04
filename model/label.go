package model

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignLabel returns hex(HMAC-SHA256(secret, token)). Only this digest is stored.
func SignLabel(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyLabel recomputes the digest for token and compares it to the stored digest
// in constant time.
func VerifyLabel(token, digest, secret string) bool {
	if token == "" || digest == "" {
		return false
	}
	expected, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hmac.Equal(mac.Sum(nil), expected)
}
