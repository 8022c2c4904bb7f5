package repository

import (
	"context"
	"fmt"

	"github.com/duetapp/pairing-server-go/internal/model"
	"github.com/duetapp/pairing-server-go/internal/util"
)

// DemoCredential pairs a seeded demo profile with the plaintext bearer token
// that authenticates as it. Only the hash is stored; the plaintext exists so
// offline mode can print usable credentials at startup.
type DemoCredential struct {
	ProfileID   string
	DisplayName string
	Token       string
}

var demoProfiles = []model.CreateProfileParams{
	{DisplayName: "Demo Alice", Email: "alice@demo.local"},
	{DisplayName: "Demo Bob", Email: "bob@demo.local"},
}

// SeedDemoProfiles creates the built-in demo accounts with fresh API tokens.
// Offline mode calls this at startup; without it the in-memory profile store
// starts empty and no request could ever pass authentication.
func SeedDemoProfiles(ctx context.Context, profiles ProfileRepository) ([]DemoCredential, error) {
	creds := make([]DemoCredential, 0, len(demoProfiles))

	for _, params := range demoProfiles {
		token, err := util.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("generate demo token: %w", err)
		}
		params.APITokenHash = util.HashToken(token)

		profile, err := profiles.Create(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create demo profile %q: %w", params.DisplayName, err)
		}

		creds = append(creds, DemoCredential{
			ProfileID:   profile.ID,
			DisplayName: profile.DisplayName,
			Token:       token,
		})
	}

	return creds, nil
}
