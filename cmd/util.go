package cmd

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/jwtutil"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	jwkKeyID   string
	jwkOutDir  string
	tokenURL   string
	tokenScope []string
)

var utilCmd = &cobra.Command{
	Use:     "util",
	Aliases: []string{"utils"},
	Short:   "Utility commands for local development",
}

var utilGenerateJWKCmd = &cobra.Command{
	Use:   "generate-jwk",
	Short: "Generate an RS256 signing key as JWKS files",
	RunE: func(_ *cobra.Command, _ []string) error {
		pubSet, privSet, err := generateKeySets(jwkKeyID)
		if err != nil {
			return err
		}

		pubJSON, err := json.MarshalIndent(pubSet, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode public keys: %w", err)
		}
		privJSON, err := json.MarshalIndent(privSet, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode private keys: %w", err)
		}

		pubPath, privPath := jwkOutDir+"/jwks.public.json", jwkOutDir+"/jwks.private.json"
		if err := os.WriteFile(pubPath, pubJSON, 0o600); err != nil {
			return err
		}
		if err := os.WriteFile(privPath, privJSON, 0o600); err != nil {
			return err
		}

		fmt.Printf("JWKs written to %s and %s\n", pubPath, privPath)
		return nil
	},
}

var utilTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch an access token with the client credentials grant",
	RunE: func(c *cobra.Command, _ []string) error {
		tok, err := fetchAccessToken(c.Context(), cfg, tokenURL, tokenScope)
		if err != nil {
			return err
		}
		fmt.Println(tok.AccessToken)
		return nil
	},
}

var utilInspectTokenCmd = &cobra.Command{
	Use:   "inspect-token <token>",
	Short: "Decode an access token without verifying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		summary, err := jwtutil.Inspect(args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), string(out))
		if summary.Expired(time.Now()) {
			fmt.Fprintln(c.ErrOrStderr(), "warning: token is expired")
		}
		return nil
	},
}

// generateKeySets creates an RSA key tagged for RS256 signing and returns it as
// a public and a private JWKS.
func generateKeySets(kid string) (jwk.Set, jwk.Set, error) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}

	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JWK: %w", err)
	}
	for k, v := range map[string]any{
		jwk.KeyIDKey:     kid,
		jwk.AlgorithmKey: jwa.RS256,
		jwk.KeyUsageKey:  "sig",
	} {
		if err := key.Set(k, v); err != nil {
			return nil, nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	pubKey, err := key.PublicKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get public key: %w", err)
	}

	pubSet := jwk.NewSet()
	if err := pubSet.AddKey(pubKey); err != nil {
		return nil, nil, err
	}
	privSet := jwk.NewSet()
	if err := privSet.AddKey(key); err != nil {
		return nil, nil, err
	}
	return pubSet, privSet, nil
}

// fetchAccessToken asks the issuer's token endpoint for a token addressed to
// the API audience. An empty endpoint defaults to <issuer>oauth/token.
func fetchAccessToken(ctx context.Context, cfg *config.Config, endpoint string, scopes []string) (*oauth2.Token, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client_id and client_secret must be configured")
	}
	if endpoint == "" {
		endpoint = cfg.Issuer() + "oauth/token"
	}

	cc := clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       endpoint,
		Scopes:         scopes,
		EndpointParams: url.Values{"audience": {cfg.APIAudience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return tok, nil
}

func init() {
	utilGenerateJWKCmd.Flags().StringVar(&jwkKeyID, "kid", "drinks-dev-key", "key id written to the JWKS")
	utilGenerateJWKCmd.Flags().StringVar(&jwkOutDir, "out", ".", "directory for jwks.public.json and jwks.private.json")
	utilTokenCmd.Flags().StringVar(&tokenURL, "token-url", "", "token endpoint (default <issuer>oauth/token)")
	utilTokenCmd.Flags().StringSliceVar(&tokenScope, "scope", nil, "scopes to request")

	rootCmd.AddCommand(utilCmd)
	utilCmd.AddCommand(utilGenerateJWKCmd, utilTokenCmd, utilInspectTokenCmd)
}
