package auth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PermissionsClaim is the claim holding the caller's granted permission strings.
const PermissionsClaim = "permissions"

// Claims is the verified payload of an access token. Values are only produced by
// a successful Verify and are never modified afterwards.
type Claims struct {
	claims jwt.MapClaims
}

func newClaims(m jwt.MapClaims) *Claims {
	return &Claims{claims: m}
}

func (c *Claims) Subject() string {
	s, _ := c.claims.GetSubject()
	return s
}

func (c *Claims) Issuer() string {
	s, _ := c.claims.GetIssuer()
	return s
}

func (c *Claims) Audience() []string {
	aud, _ := c.claims.GetAudience()
	return append([]string(nil), aud...)
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAt() time.Time {
	exp, err := c.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Get returns a single raw claim value.
func (c *Claims) Get(name string) (any, bool) {
	v, ok := c.claims[name]
	return v, ok
}

// Decode unmarshals the full claim set into ref.
func (c *Claims) Decode(ref any) error {
	b, err := json.Marshal(c.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}

// Permissions returns the permission strings. ok is false when the claim is absent
// or is not a list; non-string entries are skipped.
func (c *Claims) Permissions() ([]string, bool) {
	raw, present := c.claims[PermissionsClaim]
	if !present {
		return nil, false
	}
	list, isList := raw.([]any)
	if !isList {
		if strs, isStrs := raw.([]string); isStrs {
			return append([]string(nil), strs...), true
		}
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, isStr := v.(string); isStr {
			out = append(out, s)
		}
	}
	return out, true
}

// HasPermission reports whether permission is granted verbatim.
func (c *Claims) HasPermission(permission string) bool {
	perms, ok := c.Permissions()
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission fails with invalid_claims (400) when no permissions list is present
// and with unauthorized (403) when permission is not in it.
func CheckPermission(permission string, c *Claims) error {
	if c == nil {
		return errNoPermissions()
	}
	if _, ok := c.Permissions(); !ok {
		return errNoPermissions()
	}
	if !c.HasPermission(permission) {
		return errPermissionDenied()
	}
	return nil
}
