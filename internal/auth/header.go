package auth

import (
	"net/http"
	"strings"
)

// TokenFromHeader extracts the bearer token from the Authorization header.
func TokenFromHeader(h http.Header) (string, error) {
	raw := h.Get("Authorization")
	if raw == "" {
		return "", errHeaderMissing()
	}
	return parseBearer(raw)
}

func parseBearer(raw string) (string, error) {
	parts := strings.Fields(raw)
	switch {
	case len(parts) == 0:
		return "", errMalformedHeader(msgBadScheme)
	case !strings.EqualFold(parts[0], "bearer"):
		return "", errMalformedHeader(msgBadScheme)
	case len(parts) == 1:
		return "", errMalformedHeader(msgTokenNotFound)
	case len(parts) > 2:
		return "", errMalformedHeader(msgNotBearer)
	}
	return parts[1], nil
}
