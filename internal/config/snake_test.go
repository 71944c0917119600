package config

import "testing"

func TestToSnakeCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"TestCamelCase", "test_camel_case"},
		{"JWKSCacheTTL", "jwks_cache_ttl"},
		{"APIAudience", "api_audience"},
		{"Auth0Domain", "auth0_domain"},
		{"CORSAllowedOrigin", "cors_allowed_origin"},
		{"API", "api"},
	}

	for _, c := range cases {
		got := toSnakeCase(c.in)
		if got != c.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
