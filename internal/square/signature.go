package square

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Square webhook signatures are HMAC-SHA1 by contract
	"encoding/base64"

	"github.com/sacredflow/backend-go/pkg/logger"
)

// SignatureVerifier validates Square webhook signatures. Square signs the
// notification URL concatenated with the raw body using HMAC-SHA1 and sends
// the base64 digest in the x-square-hmacsha1-signature header.
type SignatureVerifier struct {
	key string
}

// NewSignatureVerifier creates a verifier with the given signature key. An
// empty key disables verification: every payload is accepted, which is the
// deliberate permissive default for unconfigured deployments.
func NewSignatureVerifier(key string) *SignatureVerifier {
	return &SignatureVerifier{key: key}
}

// Verify reports whether the provided signature matches the expected
// HMAC-SHA1 of url || body. With no key configured it returns true and logs a
// warning; with a key configured and no signature supplied it returns false.
func (v *SignatureVerifier) Verify(body []byte, requestURL, signature string) bool {
	if v.key == "" {
		logger.Log.Warn("Square webhook signature key not configured; skipping verification")
		return true
	}

	if signature == "" {
		logger.Log.Warn("Missing Square signature header")
		return false
	}

	mac := hmac.New(sha1.New, []byte(v.key))
	mac.Write([]byte(requestURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if hmac.Equal([]byte(expected), []byte(signature)) {
		return true
	}

	logger.Log.Error("Square signature verification failed")
	return false
}
