package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/coffeeshop/drinks/internal/auth/authtest"
	"github.com/golang-jwt/jwt/v5"
)

func newTestVerifier(t *testing.T, iss *authtest.Issuer) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Issuer:     iss.URL(),
		Audience:   authtest.DefaultAudience,
		Algorithms: []string{"RS256"},
	}, NewHTTPKeySetFetcher(iss.JWKSURL(), nil))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func assertAuthError(t *testing.T, err error, code string, status int, desc string) {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if ae.Code != code || ae.StatusCode != status || ae.Description != desc {
		t.Fatalf("got {%s %d %q}, want {%s %d %q}", ae.Code, ae.StatusCode, ae.Description, code, status, desc)
	}
}

func TestVerify_HappyPath(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := newTestVerifier(t, iss)

	claims, err := v.Verify(context.Background(), iss.Token(t, "get:drinks-detail"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject() != "auth0|barista" {
		t.Errorf("Subject() = %q", claims.Subject())
	}
	if !claims.HasPermission("get:drinks-detail") {
		t.Errorf("expected get:drinks-detail in %v", claims)
	}
}

func TestVerify_Failures(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := newTestVerifier(t, iss)
	otherKey := authtest.GenerateKey(t)

	past := time.Now().Add(-time.Hour).Unix()

	cases := []struct {
		name   string
		token  func() string
		code   string
		status int
		desc   string
	}{
		{
			name:   "no kid",
			token:  func() string { return authtest.Sign(t, iss.Key, "", iss.Claims("post:drinks")) },
			code:   CodeInvalidHeader,
			status: http.StatusUnauthorized,
			desc:   "Authorization malformed.",
		},
		{
			name:   "unknown kid",
			token:  func() string { return authtest.Sign(t, iss.Key, "rotated-away", iss.Claims("post:drinks")) },
			code:   CodeInvalidHeader,
			status: http.StatusBadRequest,
			desc:   "Unable to find the appropriate key.",
		},
		{
			name: "expired",
			token: func() string {
				c := iss.Claims("post:drinks")
				c["exp"] = past
				return iss.Sign(t, c)
			},
			code:   CodeTokenExpired,
			status: http.StatusUnauthorized,
			desc:   "Token expired.",
		},
		{
			name: "wrong audience",
			token: func() string {
				c := iss.Claims("post:drinks")
				c["aud"] = "another-api"
				return iss.Sign(t, c)
			},
			code:   CodeInvalidClaims,
			status: http.StatusUnauthorized,
			desc:   "Incorrect claims. Please, check the audience and issuer.",
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := iss.Claims("post:drinks")
				c["iss"] = "https://evil.example/"
				return iss.Sign(t, c)
			},
			code:   CodeInvalidClaims,
			status: http.StatusUnauthorized,
			desc:   "Incorrect claims. Please, check the audience and issuer.",
		},
		{
			name: "expired takes precedence over audience",
			token: func() string {
				c := iss.Claims("post:drinks")
				c["exp"] = past
				c["aud"] = "another-api"
				return iss.Sign(t, c)
			},
			code:   CodeTokenExpired,
			status: http.StatusUnauthorized,
			desc:   "Token expired.",
		},
		{
			name: "missing exp",
			token: func() string {
				c := iss.Claims("post:drinks")
				delete(c, "exp")
				return iss.Sign(t, c)
			},
			code:   CodeInvalidClaims,
			status: http.StatusUnauthorized,
			desc:   "Incorrect claims. Please, check the audience and issuer.",
		},
		{
			name:   "signed by a different key",
			token:  func() string { return authtest.Sign(t, otherKey, iss.KeyID, iss.Claims("post:drinks")) },
			code:   CodeInvalidHeader,
			status: http.StatusBadRequest,
			desc:   "Unable to parse authentication token.",
		},
		{
			name: "expired and signed by a different key",
			token: func() string {
				c := iss.Claims("post:drinks")
				c["exp"] = past
				return authtest.Sign(t, otherKey, iss.KeyID, c)
			},
			code:   CodeInvalidHeader,
			status: http.StatusBadRequest,
			desc:   "Unable to parse authentication token.",
		},
		{
			name: "symmetric algorithm",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, iss.Claims("post:drinks"))
				tok.Header["kid"] = iss.KeyID
				s, err := tok.SignedString([]byte("shared-secret"))
				if err != nil {
					t.Fatalf("sign hs256: %v", err)
				}
				return s
			},
			code:   CodeInvalidHeader,
			status: http.StatusBadRequest,
			desc:   "Unable to parse authentication token.",
		},
		{
			name:   "garbage",
			token:  func() string { return "not-a-jwt" },
			code:   CodeInvalidHeader,
			status: http.StatusBadRequest,
			desc:   "Unable to parse authentication token.",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(context.Background(), tt.token())
			if claims != nil {
				t.Errorf("claims must be nil on failure")
			}
			assertAuthError(t, err, tt.code, tt.status, tt.desc)
		})
	}
}

func TestVerify_SelectsKeyByKid(t *testing.T) {
	iss := authtest.NewIssuer(t)
	second := authtest.GenerateKey(t)
	iss.ServeJWKS(authtest.MarshalJWKS(t, map[string]*rsa.PublicKey{
		iss.KeyID: &iss.Key.PublicKey,
		"second":  &second.PublicKey,
	}))
	v := newTestVerifier(t, iss)

	tok := authtest.Sign(t, second, "second", iss.Claims("delete:drinks"))
	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Fatalf("verify with second key: %v", err)
	}
}

func TestVerify_FetchesKeysOnEveryCall(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := newTestVerifier(t, iss)
	tok := iss.Token(t, "get:drinks-detail")

	var first *Claims
	for i := 1; i <= 3; i++ {
		claims, err := v.Verify(context.Background(), tok)
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if got := iss.Requests(); got != int64(i) {
			t.Fatalf("after %d calls the JWKS was fetched %d times", i, got)
		}
		if first == nil {
			first = claims
			continue
		}

		if claims.Subject() != first.Subject() || !claims.ExpiresAt().Equal(first.ExpiresAt()) {
			t.Errorf("verify %d: sub %q exp %v, first sub %q exp %v",
				i, claims.Subject(), claims.ExpiresAt(), first.Subject(), first.ExpiresAt())
		}
		if !slices.Equal(claims.Audience(), first.Audience()) {
			t.Errorf("verify %d: aud %v, first %v", i, claims.Audience(), first.Audience())
		}
		got, _ := claims.Permissions()
		want, _ := first.Permissions()
		if !slices.Equal(got, want) {
			t.Errorf("verify %d: permissions %v, first %v", i, got, want)
		}
	}
}

func TestVerify_KeySetUnavailable(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := newTestVerifier(t, iss)
	tok := iss.Token(t, "get:drinks-detail")

	iss.FailWith(http.StatusInternalServerError)
	_, err := v.Verify(context.Background(), tok)
	assertAuthError(t, err, CodeInvalidHeader, http.StatusUnauthorized, "Unable to fetch the signing keys.")

	iss.ServeJWKS([]byte(`{"keys": "nope"}`))
	iss.FailWith(http.StatusOK)
	_, err = v.Verify(context.Background(), tok)
	assertAuthError(t, err, CodeInvalidHeader, http.StatusUnauthorized, "Unable to fetch the signing keys.")
}

func TestVerify_FetchTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	v, err := NewVerifier(Config{Issuer: "https://issuer.example/", Audience: "coffeeshop"},
		NewHTTPKeySetFetcher(slow.URL, &http.Client{Timeout: 50 * time.Millisecond}))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	start := time.Now()
	_, err = v.Verify(context.Background(), "a.b.c")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch was not bounded by the client timeout: %v", elapsed)
	}
	assertAuthError(t, err, CodeInvalidHeader, http.StatusUnauthorized, "Unable to fetch the signing keys.")
}

func TestNewVerifier_RequiresConfig(t *testing.T) {
	keys := KeySetFunc(func(context.Context) (*KeySet, error) { return nil, errors.New("unused") })
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no issuer", Config{Audience: "coffeeshop"}},
		{"no audience", Config{Issuer: "https://issuer.example/"}},
		{"unknown algorithm", Config{Issuer: "https://issuer.example/", Audience: "coffeeshop", Algorithms: []string{"XX999"}}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVerifier(tt.cfg, keys); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := NewVerifier(Config{Issuer: "https://issuer.example/", Audience: "coffeeshop"}, nil); err == nil {
		t.Fatal("expected error for nil fetcher")
	}
}
