// Package models defines types shared across internal packages.
package models

import (
	"net/url"
	"strings"
)

// GhostAuthParams is what a credential prompt needs to send the user
// through Ghost Auth and collect the resulting authorization code.
type GhostAuthParams struct {
	BlogURL     string `json:"blog_url"`
	AuthURL     string `json:"auth_url"`
	AuthID      string `json:"auth_id"`
	RedirectURI string `json:"redirect_uri"`
}

// AuthorizeURL returns the page the user opens to approve access.
func (p GhostAuthParams) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.AuthID)
	q.Set("redirect_uri", p.RedirectURI)

	return strings.TrimRight(p.AuthURL, "/") + "/oauth2/authorize/?" + q.Encode()
}

// PasswordAuthParams is what a credential prompt needs to ask for an
// email and password.
type PasswordAuthParams struct {
	BlogURL string `json:"blog_url"`
}

// EmailPassword is a direct-login credential pair.
type EmailPassword struct {
	Email    string
	Password string
}
