package auth

import (
	"errors"
	"net/http"
	"testing"
)

func TestTokenFromHeader(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		set       bool
		want      string
		wantCode  string
		wantDesc  string
		wantState int
	}{
		{name: "valid", header: "Bearer abc.def.ghi", set: true, want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", set: true, want: "abc.def.ghi"},
		{name: "extra whitespace", header: "  Bearer   abc  ", set: true, want: "abc"},
		{name: "missing", wantCode: CodeHeaderMissing, wantDesc: "Authorization header is expected.", wantState: 401},
		{name: "empty", header: "", set: true, wantCode: CodeHeaderMissing, wantDesc: "Authorization header is expected.", wantState: 401},
		{name: "whitespace only", header: "   ", set: true, wantCode: CodeInvalidHeader, wantDesc: `Authorization header must start with "Bearer".`, wantState: 401},
		{name: "wrong scheme", header: "Basic abc", set: true, wantCode: CodeInvalidHeader, wantDesc: `Authorization header must start with "Bearer".`, wantState: 401},
		{name: "wrong scheme with extra parts", header: "Token a b c", set: true, wantCode: CodeInvalidHeader, wantDesc: `Authorization header must start with "Bearer".`, wantState: 401},
		{name: "scheme only", header: "Bearer", set: true, wantCode: CodeInvalidHeader, wantDesc: "Token not found.", wantState: 401},
		{name: "too many parts", header: "Bearer a b", set: true, wantCode: CodeInvalidHeader, wantDesc: "Authorization header must be bearer token.", wantState: 401},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.set {
				h.Set("Authorization", tt.header)
			}

			got, err := TokenFromHeader(h)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("token = %q, want %q", got, tt.want)
				}
				return
			}

			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if ae.Code != tt.wantCode || ae.Description != tt.wantDesc || ae.StatusCode != tt.wantState {
				t.Errorf("got %+v, want code=%s desc=%q status=%d", ae, tt.wantCode, tt.wantDesc, tt.wantState)
			}
			if got != "" {
				t.Errorf("token should be empty on failure, got %q", got)
			}
		})
	}
}
