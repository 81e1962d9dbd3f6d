package auth

import (
	"context"
	"fmt"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/models"
)

// Strategy turns credentials from a CredentialStore into a token request.
type Strategy interface {
	Name() string
	AuthReqBody(ctx context.Context, store CredentialStore) (ghost.AuthReqBody, error)
}

// GhostAuth asks for an authorization code obtained through Ghost Auth.
type GhostAuth struct {
	Params       models.GhostAuthParams
	ClientSecret string
}

func (GhostAuth) Name() string { return "ghost-auth" }

func (g GhostAuth) AuthReqBody(ctx context.Context, store CredentialStore) (ghost.AuthReqBody, error) {
	code, err := store.GhostAuthCode(ctx, g.Params)
	if err != nil {
		return ghost.AuthReqBody{}, fmt.Errorf("getting auth code: %w", err)
	}

	return ghost.AuthCodeBody(g.ClientSecret, code, g.Params.RedirectURI), nil
}

// PasswordAuth asks for an email and password.
type PasswordAuth struct {
	Params       models.PasswordAuthParams
	ClientSecret string
}

func (PasswordAuth) Name() string { return "password" }

func (p PasswordAuth) AuthReqBody(ctx context.Context, store CredentialStore) (ghost.AuthReqBody, error) {
	creds, err := store.EmailAndPassword(ctx, p.Params)
	if err != nil {
		return ghost.AuthReqBody{}, fmt.Errorf("getting email and password: %w", err)
	}

	return ghost.PasswordAuthBody(p.ClientSecret, creds.Email, creds.Password), nil
}

// SelectStrategy picks GhostAuth when the blog advertises a Ghost Auth
// client and PasswordAuth otherwise.
func SelectStrategy(blogURL string, cfg *ghost.Configuration) Strategy {
	if cfg.UsesGhostAuth() {
		return GhostAuth{
			Params: models.GhostAuthParams{
				BlogURL:     blogURL,
				AuthURL:     cfg.GhostAuthURL,
				AuthID:      cfg.GhostAuthID,
				RedirectURI: ghost.MakeAbsoluteURL(blogURL, "ghost/"),
			},
			ClientSecret: cfg.ClientSecret,
		}
	}

	return PasswordAuth{
		Params:       models.PasswordAuthParams{BlogURL: blogURL},
		ClientSecret: cfg.ClientSecret,
	}
}
