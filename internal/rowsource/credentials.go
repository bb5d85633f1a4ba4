package rowsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const SpreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// Credentials identifies a Google service account. KeyFile wins over the
// inline email/key pair.
type Credentials struct {
	KeyFile    string
	Email      string
	PrivateKey string
}

func (c Credentials) Configured() bool {
	return c.KeyFile != "" || (c.Email != "" && c.PrivateKey != "")
}

// TokenSource builds a service-account token source for the Sheets scope.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if c.KeyFile != "" {
		data, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read service account key file: %w", err)
		}
		cfg, err := google.JWTConfigFromJSON(data, SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account key file: %w", err)
		}
		return cfg.TokenSource(ctx), nil
	}
	if c.Email == "" || c.PrivateKey == "" {
		return nil, ErrNotConfigured
	}
	cfg := &jwt.Config{
		Email:      c.Email,
		PrivateKey: []byte(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")),
		Scopes:     []string{SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	return cfg.TokenSource(ctx), nil
}
