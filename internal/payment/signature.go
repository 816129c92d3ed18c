package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and checks callback signatures: hex(HMAC-SHA256(secret, orderID|paymentID)).
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer keyed by the gateway secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the signature the gateway would attach for the given ids.
func (s *Signer) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the ids. An empty secret never verifies.
func (s *Signer) Verify(gatewayOrderID, paymentID, signature string) bool {
	if len(s.secret) == 0 {
		return false
	}
	expected := s.Sign(gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
