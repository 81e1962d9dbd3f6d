// Package ghosttest runs an in-memory Ghost admin API for tests.
package ghosttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

// Fixture values the server accepts and issues.
const (
	Email                = "user@example.com"
	Password             = "password"
	AuthCode             = "auth-code"
	ClientSecret         = "client-secret"
	GhostAuthID          = "ghost-auth-id"
	GhostAuthURL         = "ghost-auth-url"
	AccessToken          = "access-token"
	RefreshToken         = "refresh-token"
	RefreshedAccessToken = "refreshed-access-token"
	TokenLifetime        = 3600
)

// Option configures a Server.
type Option func(*Server)

// WithGhostAuth makes the configuration endpoint advertise Ghost Auth.
func WithGhostAuth() Option {
	return func(s *Server) { s.ghostAuth = true }
}

// WithTLS serves over https.
func WithTLS() Option {
	return func(s *Server) { s.tls = true }
}

// Server is a fake Ghost blog. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	ghostAuth bool
	tls       bool

	mu            sync.Mutex
	validAccess   map[string]bool
	validRefresh  map[string]bool
	posts         map[string]ghost.Post
	nextID        int
	tokenRequests int
	refreshes     int
	revoked       []string
	failConfig    int
}

// New starts a fake blog. It is closed automatically when the test ends.
func New(t interface{ Cleanup(func()) }, opts ...Option) *Server {
	s := &Server{
		validAccess:  make(map[string]bool),
		validRefresh: make(map[string]bool),
		posts:        make(map[string]ghost.Post),
		nextID:       1,
	}

	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ghost/api/v0.1/configuration/", s.handleConfiguration)
	mux.HandleFunc("POST /ghost/api/v0.1/authentication/token", s.handleToken)
	mux.HandleFunc("POST /ghost/api/v0.1/authentication/revoke", s.handleRevoke)
	mux.HandleFunc("GET /ghost/api/v0.1/users/me/", s.authed(s.handleMe))
	mux.HandleFunc("GET /ghost/api/v0.1/settings/", s.authed(s.handleSettings))
	mux.HandleFunc("GET /ghost/api/v0.1/posts/", s.authed(s.handleListPosts))
	mux.HandleFunc("POST /ghost/api/v0.1/posts/", s.authed(s.handleCreatePost))
	mux.HandleFunc("GET /ghost/api/v0.1/posts/{id}/", s.authed(s.handleGetPost))
	mux.HandleFunc("PUT /ghost/api/v0.1/posts/{id}/", s.authed(s.handleUpdatePost))
	mux.HandleFunc("DELETE /ghost/api/v0.1/posts/{id}/", s.authed(s.handleDeletePost))

	if s.tls {
		s.Server = httptest.NewTLSServer(mux)
	} else {
		s.Server = httptest.NewServer(mux)
	}

	t.Cleanup(s.Close)

	return s
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.validAccess)
}

// ExpireRefreshTokens invalidates every refresh token issued so far.
func (s *Server) ExpireRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.validRefresh)
}

// FailConfiguration makes the next n configuration requests return 503.
func (s *Server) FailConfiguration(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failConfig = n
}

// TokenRequests returns how many password or auth-code grants were served.
func (s *Server) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokenRequests
}

// Refreshes returns how many refresh grants were served.
func (s *Server) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refreshes
}

// Revoked returns the token type hints revoked, in order.
func (s *Server) Revoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.revoked...)
}

// AddPost stores a post directly and returns it with id and timestamps set.
func (s *Server) AddPost(p ghost.Post) ghost.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(p)
}

// Post returns a stored post.
func (s *Server) Post(id string) (ghost.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]

	return p, ok
}

// EditPost mutates a stored post as if another client had saved it.
func (s *Server) EditPost(id string, fn func(*ghost.Post)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.posts[id]
	fn(&p)
	p.UpdatedAt = s.bumpLocked(p.UpdatedAt)
	s.posts[id] = p
}

func (s *Server) insertLocked(p ghost.Post) ghost.Post {
	p.ID = strconv.Itoa(s.nextID)
	s.nextID++

	if p.UUID == "" {
		p.UUID = "uuid-" + p.ID
	}

	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}

	if p.Status == "" {
		p.Status = "draft"
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p

	return p
}

// bumpLocked returns a timestamp strictly after prev so updates are
// always observable even within the same second.
func (s *Server) bumpLocked(prev time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Second)
	if !now.After(prev) {
		now = prev.Add(time.Second)
	}

	return now
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		valid := ok && s.validAccess[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Access denied.")
			return
		}

		next(w, r)
	}
}

func (s *Server) handleConfiguration(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	fail := s.failConfig > 0
	if fail {
		s.failConfig--
	}
	s.mu.Unlock()

	if fail {
		writeError(w, http.StatusServiceUnavailable, "InternalServerError", "Service unavailable.")
		return
	}

	cfg := map[string]any{"clientSecret": ClientSecret}
	if s.ghostAuth {
		cfg["ghostAuthId"] = GhostAuthID
		cfg["ghostAuthUrl"] = GhostAuthURL
		cfg["blogUrl"] = "http://blog.com"
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": []any{cfg}})
}

type tokenRequest struct {
	GrantType         string `json:"grant_type"`
	ClientID          string `json:"client_id"`
	ClientSecret      string `json:"client_secret"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	AuthorizationCode string `json:"authorization_code"`
	RefreshToken      string `json:"refresh_token"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequestError", "Malformed request.")
		return
	}

	if req.ClientID != ghost.ClientID || req.ClientSecret != ClientSecret {
		writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Client credentials were not valid")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.GrantType {
	case "password":
		s.tokenRequests++

		if req.Username != Email {
			writeError(w, http.StatusNotFound, "NotFoundError", "There is no user with that email address.")
			return
		}

		if req.Password != Password {
			writeError(w, http.StatusUnprocessableEntity, "ValidationError", "Your password is incorrect.")
			return
		}

		s.issueLocked(w)
	case "authorization_code":
		s.tokenRequests++

		if req.AuthorizationCode != AuthCode {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Invalid authorization code.")
			return
		}

		s.issueLocked(w)
	case "refresh_token":
		s.refreshes++

		if req.RefreshToken != RefreshToken || !s.validRefresh[req.RefreshToken] {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Expired or invalid refresh token")
			return
		}

		s.validAccess[RefreshedAccessToken] = true
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": RefreshedAccessToken,
			"expires_in":   TokenLifetime,
			"token_type":   ghost.TokenTypeBearer,
		})
	default:
		writeError(w, http.StatusBadRequest, "BadRequestError", "Unsupported grant type.")
	}
}

func (s *Server) issueLocked(w http.ResponseWriter) {
	s.validAccess[AccessToken] = true
	s.validRefresh[RefreshToken] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  AccessToken,
		"refresh_token": RefreshToken,
		"expires_in":    TokenLifetime,
		"token_type":    ghost.TokenTypeBearer,
	})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req ghost.RevokeReqBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequestError", "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked = append(s.revoked, req.TokenTypeHint)

	if req.TokenTypeHint == "refresh_token" {
		delete(s.validRefresh, req.Token)
	} else {
		delete(s.validAccess, req.Token)
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": req.Token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": []ghost.User{{
		ID: "1", Name: "Test User", Slug: "test-user", Email: Email,
	}}})
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"settings": []ghost.Setting{
		{Key: "title", Value: "Test Blog"},
		{Key: "description", Value: "A blog for tests"},
	}})
}

func (s *Server) handleListPosts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := ghost.PostList{Posts: make([]ghost.Post, 0, len(s.posts))}
	for _, p := range s.posts {
		list.Posts = append(list.Posts, p)
	}

	sort.Slice(list.Posts, func(i, j int) bool {
		a, _ := strconv.Atoi(list.Posts[i].ID)
		b, _ := strconv.Atoi(list.Posts[j].ID)

		return a < b
	})

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Post not found.")
		return
	}

	writeJSON(w, http.StatusOK, ghost.PostList{Posts: []ghost.Post{p}})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in ghost.PostList
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Posts) != 1 {
		writeError(w, http.StatusBadRequest, "BadRequestError", "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.insertLocked(in.Posts[0])
	writeJSON(w, http.StatusCreated, ghost.PostList{Posts: []ghost.Post{p}})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in ghost.PostList
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Posts) != 1 {
		writeError(w, http.StatusBadRequest, "BadRequestError", "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")

	cur, ok := s.posts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Post not found.")
		return
	}

	p := in.Posts[0]
	if !p.UpdatedAt.IsZero() && !p.UpdatedAt.Equal(cur.UpdatedAt) {
		writeError(w, http.StatusConflict, "UpdateCollisionError", "Saving failed! Someone else is editing this post.")
		return
	}

	p.ID = cur.ID
	p.UUID = cur.UUID
	p.CreatedAt = cur.CreatedAt

	if p.Slug == "" {
		p.Slug = cur.Slug
	}

	if p.Status == "" {
		p.Status = cur.Status
	}

	p.UpdatedAt = s.bumpLocked(cur.UpdatedAt)
	s.posts[id] = p

	writeJSON(w, http.StatusOK, ghost.PostList{Posts: []ghost.Post{p}})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.posts[id]; !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Post not found.")
		return
	}

	delete(s.posts, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errorType, msg string) {
	writeJSON(w, status, ghost.APIErrorList{Errors: []ghost.APIErrorDetail{{Message: msg, ErrorType: errorType}}})
}

func slugify(title string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')

			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
