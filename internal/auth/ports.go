// Package auth logs in to a Ghost blog and keeps the session token fresh.
//
// LoginOrchestrator runs the interactive flow: validate the blog URL,
// pick Ghost Auth or password login from the blog's configuration, pull
// credentials from a CredentialStore and exchange them for a token,
// retrying for as long as the server rejects the credentials. Service
// holds the resulting token, refreshes it on expiry and falls back to a
// full re-login with the stored credentials when the refresh token is
// rejected too.
package auth

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=auth

import (
	"context"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/models"
)

// CredentialStore supplies credentials on demand and records the outcome
// of logins, keyed by canonical blog URL. Re-login replays credentials
// through the same store that saved them, so one value plays both roles.
type CredentialStore interface {
	// GhostAuthCode returns an authorization code for the Ghost Auth flow.
	GhostAuthCode(ctx context.Context, params models.GhostAuthParams) (string, error)
	// EmailAndPassword returns a direct-login credential pair.
	EmailAndPassword(ctx context.Context, params models.PasswordAuthParams) (models.EmailPassword, error)
	// SaveCredentials persists the request body of a successful login.
	SaveCredentials(blogURL string, body ghost.AuthReqBody) error
	// DeleteCredentials forgets everything stored for blogURL.
	DeleteCredentials(blogURL string) error
	// SetLoggedIn records whether blogURL has a working session.
	SetLoggedIn(blogURL string, loggedIn bool) error
}

// BlogURLValidator resolves user input to a canonical blog URL.
type BlogURLValidator interface {
	CheckGhostBlog(ctx context.Context, rawURL string) (string, error)
}

// BlogURLValidatorFunc adapts a function to BlogURLValidator.
type BlogURLValidatorFunc func(ctx context.Context, rawURL string) (string, error)

func (f BlogURLValidatorFunc) CheckGhostBlog(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// API is the part of the Ghost admin API that authentication needs.
// *ghost.Client implements it.
type API interface {
	Configuration(ctx context.Context) (*ghost.Configuration, error)
	GetAuthToken(ctx context.Context, body ghost.AuthReqBody) (*ghost.AuthToken, error)
	RefreshAuthToken(ctx context.Context, body ghost.RefreshReqBody) (*ghost.AuthToken, error)
	RevokeAuthToken(ctx context.Context, authHeader string, body ghost.RevokeReqBody) error
}

// APIFactory returns an API bound to a canonical blog URL.
type APIFactory func(blogURL string) API

// LoginListener observes a LoginOrchestrator run.
type LoginListener interface {
	// OnStartWaiting fires once the strategy is known and credentials
	// are about to be requested.
	OnStartWaiting()
	// OnLoginDone fires after credentials were saved.
	OnLoginDone()
	// OnNetworkError fires when the run stops on a failure that is not a
	// credential rejection.
	OnNetworkError(errType ErrorType, err error)
	// OnAPIError fires for each rejected credential attempt. message is
	// the server's explanation, suitable for display.
	OnAPIError(message string, err error)
}

// TokenListener observes token changes made by a Service.
type TokenListener interface {
	OnNewAuthToken(token *ghost.AuthToken)
}
