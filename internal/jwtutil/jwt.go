// Package jwtutil decodes access tokens for inspection. Nothing here verifies a
// signature; authorization decisions belong to the auth package.
package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned when the input is not a compact JWS.
var ErrInvalidToken = errors.New("invalid token format")

// Summary is the readable view of a token's header and claims.
type Summary struct {
	KeyID       string     `json:"kid,omitempty"`
	Algorithm   string     `json:"alg,omitempty"`
	Issuer      string     `json:"iss,omitempty"`
	Subject     string     `json:"sub,omitempty"`
	Audience    []string   `json:"aud,omitempty"`
	IssuedAt    *time.Time `json:"iat,omitempty"`
	ExpiresAt   *time.Time `json:"exp,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	// PermissionsMalformed is set when the claim exists but is not a list of strings.
	PermissionsMalformed bool `json:"permissions_malformed,omitempty"`
}

// Expired reports whether the token's exp lies before now.
func (s *Summary) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Inspect decodes token without verifying it.
func Inspect(token string) (*Summary, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, ErrInvalidToken
	}
	hdr := sigs[0].ProtectedHeaders()

	parsed, err := jwt.Parse([]byte(token), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	s := &Summary{
		KeyID:     hdr.KeyID(),
		Algorithm: hdr.Algorithm().String(),
		Issuer:    parsed.Issuer(),
		Subject:   parsed.Subject(),
		Audience:  parsed.Audience(),
	}
	if iat := parsed.IssuedAt(); !iat.IsZero() {
		s.IssuedAt = &iat
	}
	if exp := parsed.Expiration(); !exp.IsZero() {
		s.ExpiresAt = &exp
	}

	if raw, ok := parsed.Get("permissions"); ok {
		s.Permissions, s.PermissionsMalformed = stringList(raw)
	}
	return s, nil
}

func stringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, true
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, true
		}
		out = append(out, str)
	}
	return out, false
}
