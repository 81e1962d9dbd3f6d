package ghost

import (
	"fmt"
	"time"
)

const (
	// ClientID is the OAuth client every Ghost 1.x installation ships with.
	ClientID = "ghost-admin"

	// TokenTypeBearer is the only token type Ghost issues.
	TokenTypeBearer = "Bearer"

	grantPassword     = "password"
	grantAuthCode     = "authorization_code"
	grantRefreshToken = "refresh_token"

	tokenHintAccess  = "access_token"
	tokenHintRefresh = "refresh_token"
)

// AuthToken is an access/refresh token pair returned by the token
// endpoint. A refresh grant may omit RefreshToken; callers keep the
// previous one in that case (see WithRefreshFallback).
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthHeader returns the value for the Authorization header.
func (t *AuthToken) AuthHeader() string {
	typ := t.TokenType
	if typ == "" {
		typ = TokenTypeBearer
	}

	return typ + " " + t.AccessToken
}

// ExpiresAt returns the instant the access token stops being valid.
func (t *AuthToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired reports whether the access token has expired at now.
func (t *AuthToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// WithRefreshFallback returns a copy of t that carries previous as its
// refresh token when the server did not send a new one.
func (t AuthToken) WithRefreshFallback(previous string) *AuthToken {
	if t.RefreshToken == "" {
		t.RefreshToken = previous
	}

	return &t
}

// AuthReqBody is the payload for a password or authorization-code grant.
// It is also what gets persisted so a session can log in again later.
type AuthReqBody struct {
	GrantType         string `json:"grant_type"`
	ClientID          string `json:"client_id"`
	ClientSecret      string `json:"client_secret"`
	Username          string `json:"username,omitempty"`
	Password          string `json:"password,omitempty"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
	RedirectURI       string `json:"redirect_uri,omitempty"`
}

// PasswordAuthBody builds a password grant.
func PasswordAuthBody(clientSecret, email, password string) AuthReqBody {
	return AuthReqBody{
		GrantType:    grantPassword,
		ClientID:     ClientID,
		ClientSecret: clientSecret,
		Username:     email,
		Password:     password,
	}
}

// AuthCodeBody builds an authorization-code grant for Ghost Auth.
func AuthCodeBody(clientSecret, code, redirectURI string) AuthReqBody {
	return AuthReqBody{
		GrantType:         grantAuthCode,
		ClientID:          ClientID,
		ClientSecret:      clientSecret,
		AuthorizationCode: code,
		RedirectURI:       redirectURI,
	}
}

// IsGhostAuth reports whether the body is an authorization-code grant.
func (b AuthReqBody) IsGhostAuth() bool {
	return b.GrantType == grantAuthCode
}

// WithClientSecret returns a copy using a freshly fetched client secret.
func (b AuthReqBody) WithClientSecret(secret string) AuthReqBody {
	b.ClientSecret = secret
	return b
}

// RefreshReqBody is the payload for a refresh grant.
type RefreshReqBody struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// NewRefreshReqBody builds a refresh grant.
func NewRefreshReqBody(refreshToken, clientSecret string) RefreshReqBody {
	return RefreshReqBody{
		GrantType:    grantRefreshToken,
		RefreshToken: refreshToken,
		ClientID:     ClientID,
		ClientSecret: clientSecret,
	}
}

// RevokeReqBody is the payload for POST authentication/revoke.
type RevokeReqBody struct {
	TokenTypeHint string `json:"token_type_hint"`
	Token         string `json:"token"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
}

// RevokeAccessToken builds a revocation request for an access token.
func RevokeAccessToken(token, clientSecret string) RevokeReqBody {
	return RevokeReqBody{TokenTypeHint: tokenHintAccess, Token: token, ClientID: ClientID, ClientSecret: clientSecret}
}

// RevokeRefreshToken builds a revocation request for a refresh token.
func RevokeRefreshToken(token, clientSecret string) RevokeReqBody {
	return RevokeReqBody{TokenTypeHint: tokenHintRefresh, Token: token, ClientID: ClientID, ClientSecret: clientSecret}
}

// Configuration is the flattened first entry of GET configuration/.
type Configuration struct {
	ClientSecret string
	GhostAuthID  string
	GhostAuthURL string
	BlogURL      string

	// Raw holds every key as a string: null becomes "", strings are
	// unquoted and anything else is kept as its JSON text.
	Raw map[string]string
}

// UsesGhostAuth reports whether the blog delegates login to Ghost Auth.
func (c *Configuration) UsesGhostAuth() bool {
	return c.GhostAuthID != "" && c.GhostAuthURL != ""
}

// Tag is a post tag. Only the name is sent on writes.
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Post is the subset of a Ghost post this client reads and writes.
type Post struct {
	ID            string    `json:"id,omitempty"`
	UUID          string    `json:"uuid,omitempty"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug,omitempty"`
	Status        string    `json:"status,omitempty"`
	Mobiledoc     string    `json:"mobiledoc"`
	HTML          string    `json:"html,omitempty"`
	Tags          []Tag     `json:"tags"`
	CustomExcerpt string    `json:"custom_excerpt,omitempty"`
	FeatureImage  string    `json:"feature_image,omitempty"`
	Featured      bool      `json:"featured"`
	Page          bool      `json:"page"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// TagNames returns the post's tag names in order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}

	return names
}

// PostList wraps posts for both requests and responses.
type PostList struct {
	Posts []Post `json:"posts"`
}

// Contains reports whether a post with the given id is in the list.
func (l *PostList) Contains(id string) bool {
	for _, p := range l.Posts {
		if p.ID == id {
			return true
		}
	}

	return false
}

// User is the authenticated user as returned by users/me.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Email string `json:"email"`
}

type userList struct {
	Users []User `json:"users"`
}

// Setting is a single blog setting.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type settingList struct {
	Settings []Setting `json:"settings"`
}

// APIErrorDetail is one entry of a Ghost error body.
type APIErrorDetail struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
	Context   string `json:"context,omitempty"`
}

// APIErrorList is the error body shape Ghost returns for failed requests:
// {"errors": [{"message": ..., "errorType": ..., "context": ...}]}
type APIErrorList struct {
	Errors []APIErrorDetail `json:"errors"`
}

func (l APIErrorList) String() string {
	if len(l.Errors) == 0 {
		return ""
	}

	e := l.Errors[0]
	if e.ErrorType == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
}
