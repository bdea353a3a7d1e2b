package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"classtrack/internal/apperr"
)

// DefaultMaxAge is how long an issued token stays redeemable.
const DefaultMaxAge = 5 * time.Minute

// swappable in tests
var nowFunc = time.Now

// Codec issues and verifies signed check-in tokens. Tokens are stateless:
// validity is a pure function of the secret, the payload and the clock.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec around the server-held signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue produces an opaque URL-safe token binding classSessionID to the
// current time. The same token may be redeemed multiple times within its
// window; deduplication is the recorder's job.
func (c *Codec) Issue(classSessionID string) string {
	payload := classSessionID + "|" + strconv.FormatInt(nowFunc().Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + c.sign(payload)
}

// Verify checks signature and freshness and returns the class session id.
// Any failure mode (bad signature, garbage payload, expiry) comes back as
// an unauthorized error; a non-positive maxAge is a caller error.
func (c *Codec) Verify(tok string, maxAge time.Duration) (string, error) {
	if maxAge <= 0 {
		return "", apperr.Invalid("token max age must be positive")
	}

	encoded, sig, ok := strings.Cut(tok, ".")
	if !ok {
		return "", apperr.Unauthorized("invalid attendance token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperr.Unauthorized("invalid attendance token")
	}
	payload := string(raw)
	if !hmac.Equal([]byte(c.sign(payload)), []byte(sig)) {
		return "", apperr.Unauthorized("invalid attendance token")
	}

	classSessionID, stamp, ok := strings.Cut(payload, "|")
	if !ok || classSessionID == "" {
		return "", apperr.Unauthorized("invalid attendance token")
	}
	issuedAt, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return "", apperr.Unauthorized("invalid attendance token")
	}
	if nowFunc().Sub(time.Unix(issuedAt, 0)) > maxAge {
		return "", apperr.Unauthorized("attendance token expired")
	}
	return classSessionID, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
