package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks an x-signature header ("ts=<ts>,v1=<hex>") against
// HMAC-SHA256(secret, "<requestID>.<ts>").
func VerifySignature(secret, header, requestID string) bool {
	if secret == "" || header == "" || requestID == "" {
		return false
	}
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, requestID, ts)), []byte(v1))
}

// Sign returns the hex signature for requestID and ts
func Sign(secret, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(requestID + "." + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// AcceptWebhook applies the delivery policy: no secret accepts everything, a
// bad signature is tolerated outside production.
func AcceptWebhook(secret, header, requestID string, production bool) bool {
	if secret == "" {
		return true
	}
	if VerifySignature(secret, header, requestID) {
		return true
	}
	return !production
}
