package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds everything the authorization pipeline needs. There is no package state.
type Config struct {
	// Issuer is the exact expected iss claim, e.g. https://tenant.auth0.com/
	Issuer string
	// Audience is the expected aud entry.
	Audience string
	// Algorithms lists the accepted JWS algorithms. Defaults to RS256.
	Algorithms []string
	// JWKSURL is where signing keys are fetched from.
	JWKSURL string
	// FetchTimeout bounds each JWKS request. Defaults to DefaultFetchTimeout.
	FetchTimeout time.Duration
	// CacheTTL > 0 keeps keys in memory for that long instead of fetching per request.
	CacheTTL time.Duration
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

func (c Config) algorithms() []string {
	if len(c.Algorithms) == 0 {
		return []string{"RS256"}
	}
	return c.Algorithms
}

func (c Config) validate() error {
	if c.Issuer == "" {
		return errors.New("issuer is required")
	}
	if c.Audience == "" {
		return errors.New("audience is required")
	}
	for _, alg := range c.algorithms() {
		if jwt.GetSigningMethod(alg) == nil {
			return fmt.Errorf("unknown signing algorithm %q", alg)
		}
	}
	return nil
}

// Verifier checks token signatures against the key set and validates
// audience, issuer and expiry.
type Verifier struct {
	keys   KeySetFetcher
	parser *jwt.Parser
	header *jwt.Parser
}

// NewVerifier builds a Verifier that resolves signing keys through keys.
func NewVerifier(cfg Config, keys KeySetFetcher) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("key set fetcher is required")
	}
	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods(cfg.algorithms()),
			jwt.WithAudience(cfg.Audience),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.Leeway),
		),
		header: jwt.NewParser(),
	}, nil
}

// Verify returns the token's claims once the signature, audience, issuer and
// expiry all check out. Every failure is an *Error.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	keys, err := v.keys.Fetch(ctx)
	if err != nil {
		return nil, errKeySetUnavailable(err)
	}

	unverified, _, err := v.header.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, errUnparseable(err)
	}
	rawKid, present := unverified.Header["kid"]
	if !present {
		return nil, errNoKeyID()
	}
	kid, _ := rawKid.(string)
	_, pub, found := keys.Lookup(kid)
	if !found {
		return nil, errKeyNotFound()
	}

	claims := jwt.MapClaims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		if pub == nil {
			return nil, fmt.Errorf("key %q has no usable public material", kid)
		}
		return pub, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return newClaims(claims), nil
}

// classify maps a golang-jwt failure onto the error taxonomy. Expiry wins over
// other claim failures, and anything that is not a claim failure is unparseable.
func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return errIncorrectClaims(err)
	default:
		return errUnparseable(err)
	}
}
