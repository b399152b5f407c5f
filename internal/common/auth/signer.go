// internal/common/auth/signer.go
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token purposes. A token minted for one purpose never verifies for another.
const (
	PurposeDownload = "download"
	PurposeProcess  = "process"
)

var (
	ErrInvalidToken    = errors.New("TOKEN_INVALID")
	ErrPurposeMismatch = errors.New("TOKEN_PURPOSE_MISMATCH")
	ErrExpiredToken    = errors.New("TOKEN_EXPIRED")
)

var encoding = base64.RawURLEncoding

// Claims is the signed payload.
type Claims struct {
	Purpose   string `json:"p"`
	Subject   string `json:"s"`
	Binding   string `json:"b,omitempty"` // keyed digest, never the raw value
	IssuedAt  int64  `json:"iat"`         // unix nanoseconds
	ExpiresAt int64  `json:"exp,omitempty"`
	Nonce     string `json:"n"`
}

// Expiry returns the absolute expiry, zero when the token does not expire.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(0, c.ExpiresAt).UTC()
}

// Signer issues and verifies purpose-bound HMAC-SHA256 tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

type SignerOption func(*Signer)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

func NewSigner(secret string, opts ...SignerOption) (*Signer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("signer secret must be at least 16 bytes")
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a token for purpose and subject. binding (for example a contact email) is folded
// into the payload as a keyed digest. ttl <= 0 yields a token without expiry.
func (s *Signer) Issue(purpose, subject, binding string, ttl time.Duration) (string, Claims, error) {
	if purpose == "" || subject == "" {
		return "", Claims{}, fmt.Errorf("%w: purpose and subject are required", ErrInvalidToken)
	}

	issued := s.now().UTC()
	claims := Claims{
		Purpose:  purpose,
		Subject:  subject,
		IssuedAt: issued.UnixNano(),
		Nonce:    uuid.NewString(),
	}
	if binding != "" {
		claims.Binding = s.digest(purpose + "\x00" + strings.ToLower(strings.TrimSpace(binding)))
	}
	if ttl > 0 {
		claims.ExpiresAt = issued.Add(ttl).UnixNano()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("marshal claims: %w", err)
	}
	body := encoding.EncodeToString(payload)
	return body + "." + s.sign(body), claims, nil
}

// Verify checks signature, purpose and expiry, in that order.
func (s *Signer) Verify(purpose, token string) (Claims, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(body))) {
		return Claims{}, ErrInvalidToken
	}

	raw, err := encoding.DecodeString(body)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return Claims{}, ErrPurposeMismatch
	}
	if claims.ExpiresAt != 0 && !s.now().Before(claims.Expiry()) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}

// MatchesBinding reports whether claims were issued for binding.
func (s *Signer) MatchesBinding(claims Claims, binding string) bool {
	want := s.digest(claims.Purpose + "\x00" + strings.ToLower(strings.TrimSpace(binding)))
	return hmac.Equal([]byte(claims.Binding), []byte(want))
}

func (s *Signer) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return encoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) digest(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte("binding:"))
	mac.Write([]byte(value))
	return encoding.EncodeToString(mac.Sum(nil)[:16])
}
