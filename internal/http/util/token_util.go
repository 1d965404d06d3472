package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidGrant  = errors.New("invalid or expired grant token")
	ErrMissingSecret = errors.New("grant secret is not configured")
)

// GrantSigner mints and checks the short-lived tokens the gate hands out as
// proof that a pass was validated. Keeping the HMAC plumbing here keeps the
// handlers small.
type GrantSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewGrantSigner returns a signer that issues compact HMAC grant tokens.
func NewGrantSigner(secret []byte, ttl time.Duration) *GrantSigner {
	return &GrantSigner{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a grant token bound to the provided visitor UUID.
func (s *GrantSigner) Issue(vuid string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, 12) // 4 bytes expiry + 8 random bytes
	expires := uint32(time.Now().Add(s.ttl).Unix())
	binary.BigEndian.PutUint32(payload[:4], expires)
	if _, err := rand.Read(payload[4:]); err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(vuid, payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature[:16])
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), nil
}

// Validate checks signature integrity and TTL of a grant token.
func (s *GrantSigner) Validate(vuid, token string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidGrant
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidGrant
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidGrant
	}
	if len(sigProvided) != 16 {
		return ErrInvalidGrant
	}

	expected := s.sign(vuid, payload)
	if !hmac.Equal(sigProvided, expected[:16]) {
		return ErrInvalidGrant
	}

	if len(payload) < 4 {
		return ErrInvalidGrant
	}
	expires := binary.BigEndian.Uint32(payload[:4])
	if time.Now().Unix() > int64(expires) {
		return ErrInvalidGrant
	}

	return nil
}

func (s *GrantSigner) sign(vuid string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(vuid))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
