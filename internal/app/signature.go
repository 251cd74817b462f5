package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// paymentSignature is the HMAC-SHA256 the payment provider is expected
// to send with a confirmation: keyed by the shared secret, over
// "<intentRef>:<transactionID>".
func paymentSignature(secret []byte, intentRef, transactionID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(intentRef + ":" + transactionID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret []byte, intentRef, transactionID, got string) bool {
	want := paymentSignature(secret, intentRef, transactionID)
	return hmac.Equal([]byte(want), []byte(got))
}
