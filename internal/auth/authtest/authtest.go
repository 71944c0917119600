// Package authtest runs an in-process token issuer for tests: it serves a JWKS
// document and OpenID configuration and signs RS256 access tokens.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience tokens are minted for unless overridden.
const DefaultAudience = "coffeeshop"

// Issuer is a fake authorization server.
type Issuer struct {
	Key      *rsa.PrivateKey
	KeyID    string
	Audience string

	// ClientPermissions are granted to tokens issued by the token endpoint.
	ClientPermissions []string

	srv      *httptest.Server
	requests atomic.Int64

	mu     sync.Mutex
	status int
	jwks   []byte
}

// NewIssuer starts an issuer whose JWKS publishes a single RS256 key.
// The server is closed when the test ends.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()

	iss := &Issuer{
		Key:      GenerateKey(t),
		KeyID:    "test-key",
		Audience: DefaultAudience,
		status:   http.StatusOK,
	}
	iss.jwks = MarshalJWKS(t, map[string]*rsa.PublicKey{iss.KeyID: &iss.Key.PublicKey})

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		iss.requests.Add(1)
		iss.mu.Lock()
		status, body := iss.status, iss.jwks
		iss.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                iss.URL(),
			"jwks_uri":                              iss.JWKSURL(),
			"authorization_endpoint":                iss.URL() + "authorize",
			"token_endpoint":                        iss.URL() + "oauth/token",
			"response_types_supported":              []string{"code"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
			return
		}
		clientID := r.PostForm.Get("client_id")
		if clientID == "" || r.PostForm.Get("client_secret") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
			return
		}

		claims := iss.Claims(iss.ClientPermissions...)
		claims["sub"] = clientID + "@clients"
		if aud := r.PostForm.Get("audience"); aud != "" {
			claims["aud"] = aud
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = iss.KeyID
		signed, err := tok.SignedString(iss.Key)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": signed,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	iss.srv = httptest.NewServer(mux)
	t.Cleanup(iss.srv.Close)

	return iss
}

// URL is the issuer identifier, with a trailing slash.
func (i *Issuer) URL() string { return i.srv.URL + "/" }

// JWKSURL is where the key set is served.
func (i *Issuer) JWKSURL() string { return i.srv.URL + "/.well-known/jwks.json" }

// Requests counts JWKS downloads so far.
func (i *Issuer) Requests() int64 { return i.requests.Load() }

// FailWith makes the JWKS endpoint answer with status. http.StatusOK restores it.
func (i *Issuer) FailWith(status int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = status
}

// ServeJWKS replaces the published document.
func (i *Issuer) ServeJWKS(doc []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.jwks = doc
}

// Claims returns a valid claim set for this issuer carrying permissions.
func (i *Issuer) Claims(permissions ...string) jwt.MapClaims {
	now := time.Now()
	perms := make([]any, 0, len(permissions))
	for _, p := range permissions {
		perms = append(perms, p)
	}
	return jwt.MapClaims{
		"iss":         i.URL(),
		"sub":         "auth0|barista",
		"aud":         []string{i.Audience, i.URL() + "userinfo"},
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

// Token signs a valid token granting permissions.
func (i *Issuer) Token(t testing.TB, permissions ...string) string {
	t.Helper()
	return i.Sign(t, i.Claims(permissions...))
}

// Sign signs claims with the published key.
func (i *Issuer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return Sign(t, i.Key, i.KeyID, claims)
}

// GenerateKey creates a 2048-bit RSA key.
func GenerateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	return pk
}

// Sign produces an RS256 token with kid in its header. An empty kid omits the header.
func Sign(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// MarshalJWKS renders public keys as a JWKS document.
func MarshalJWKS(t testing.TB, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()
	set := jose.JSONWebKeySet{}
	for kid, pub := range keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{Key: pub, KeyID: kid, Algorithm: "RS256", Use: "sig"})
	}
	b, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return b
}
