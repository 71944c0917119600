package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultFetchTimeout bounds a single JWKS request when Config.FetchTimeout is unset.
const DefaultFetchTimeout = 5 * time.Second

// KeySet is an immutable snapshot of a fetched JWKS document.
type KeySet struct {
	set jwk.Set
}

// KeyRecord is the descriptive view of a single signing key.
type KeyRecord struct {
	KeyType string
	KeyID   string
	Use     string
	N       string
	E       string
}

// ParseKeySet parses a raw JWKS document.
func ParseKeySet(doc []byte) (*KeySet, error) {
	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	return &KeySet{set: set}, nil
}

// Len reports the number of keys in the set.
func (ks *KeySet) Len() int {
	if ks == nil || ks.set == nil {
		return 0
	}
	return ks.set.Len()
}

// Lookup returns the record and public key material for kid.
// The boolean is false when no key carries that kid.
func (ks *KeySet) Lookup(kid string) (KeyRecord, any, bool) {
	if ks == nil || ks.set == nil || kid == "" {
		return KeyRecord{}, nil, false
	}
	key, ok := ks.set.LookupKeyID(kid)
	if !ok {
		return KeyRecord{}, nil, false
	}

	rec := KeyRecord{
		KeyType: string(key.KeyType()),
		KeyID:   key.KeyID(),
		Use:     key.KeyUsage(),
	}
	if rsaKey, ok := key.(jwk.RSAPublicKey); ok {
		rec.N = base64.RawURLEncoding.EncodeToString(rsaKey.N())
		rec.E = base64.RawURLEncoding.EncodeToString(rsaKey.E())
	}

	var raw any
	if err := key.Raw(&raw); err != nil {
		return rec, nil, true
	}
	return rec, raw, true
}

// KeySetFetcher retrieves the current signing keys.
type KeySetFetcher interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// KeySetFunc adapts a function to KeySetFetcher.
type KeySetFunc func(ctx context.Context) (*KeySet, error)

func (f KeySetFunc) Fetch(ctx context.Context) (*KeySet, error) { return f(ctx) }

// HTTPKeySetFetcher downloads the JWKS document on every call.
type HTTPKeySetFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPKeySetFetcher builds a fetcher for url. A nil client gets one with DefaultFetchTimeout.
func NewHTTPKeySetFetcher(url string, client *http.Client) *HTTPKeySetFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &HTTPKeySetFetcher{url: url, client: client}
}

func (f *HTTPKeySetFetcher) Fetch(ctx context.Context) (*KeySet, error) {
	if f.url == "" {
		return nil, errors.New("jwks url is not configured")
	}
	set, err := jwk.Fetch(ctx, f.url, jwk.WithHTTPClient(f.client))
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", f.url, err)
	}
	return &KeySet{set: set}, nil
}

// URL returns the JWKS location.
func (f *HTTPKeySetFetcher) URL() string { return f.url }

// CachingKeySetFetcher keeps the JWKS in memory and refreshes it in the background.
// Nothing is persisted; a restart always starts from a fresh fetch.
type CachingKeySetFetcher struct {
	url   string
	cache *jwk.Cache
}

// NewCachingKeySetFetcher registers url with a jwx cache refreshed every ttl.
// The background refresher stops when ctx is cancelled.
func NewCachingKeySetFetcher(ctx context.Context, url string, ttl time.Duration, client *http.Client) (*CachingKeySetFetcher, error) {
	if url == "" {
		return nil, errors.New("jwks url is not configured")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithRefreshInterval(ttl), jwk.WithHTTPClient(client)); err != nil {
		return nil, fmt.Errorf("register jwks cache: %w", err)
	}
	return &CachingKeySetFetcher{url: url, cache: cache}, nil
}

func (f *CachingKeySetFetcher) Fetch(ctx context.Context) (*KeySet, error) {
	set, err := f.cache.Get(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("cached jwks from %s: %w", f.url, err)
	}
	return &KeySet{set: set}, nil
}

// URL returns the JWKS location.
func (f *CachingKeySetFetcher) URL() string { return f.url }
