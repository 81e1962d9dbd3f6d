package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/events"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

// Service owns the session token for one blog. Refreshes are
// serialized: concurrent callers that hit an expired token share a
// single refresh (or re-login) and all receive its result.
type Service struct {
	blogURL string
	api     API
	store   CredentialStore
	bus     *events.Bus
	locks   *BlogLocker
	logger  *slog.Logger

	sf singleflight.Group

	mu           sync.Mutex
	token        *ghost.AuthToken
	clientSecret string
	expired      bool
	listeners    map[int]TokenListener
	nextID       int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLocker shares a BlogLocker with a LoginOrchestrator.
func WithServiceLocker(l *BlogLocker) ServiceOption {
	return func(s *Service) { s.locks = l }
}

// WithToken seeds the service with a previously saved token.
func WithToken(t *ghost.AuthToken) ServiceOption {
	return func(s *Service) { s.token = t }
}

// NewService returns a Service for blogURL. bus may be nil.
func NewService(blogURL string, api API, store CredentialStore, bus *events.Bus, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		blogURL:   blogURL,
		api:       api,
		store:     store,
		bus:       bus,
		locks:     NewBlogLocker(),
		logger:    logger,
		listeners: make(map[int]TokenListener),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// BlogURL returns the blog this service is bound to.
func (s *Service) BlogURL() string { return s.blogURL }

// Listen registers l for token changes and returns its removal.
func (s *Service) Listen(l TokenListener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Token returns the current token, or nil if there is none.
func (s *Service) Token() *ghost.AuthToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// SetToken installs a token obtained elsewhere, typically from a fresh
// login, and clears the expired flag.
func (s *Service) SetToken(t *ghost.AuthToken) {
	s.mu.Lock()
	s.token = t
	s.expired = false
	s.mu.Unlock()

	s.notify(t)
}

// ClientSecret returns the blog's client secret, fetching it once.
func (s *Service) ClientSecret(ctx context.Context) (string, error) {
	s.mu.Lock()
	secret := s.clientSecret
	s.mu.Unlock()

	if secret != "" {
		return secret, nil
	}

	cfg, err := s.api.Configuration(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.clientSecret = cfg.ClientSecret
	s.mu.Unlock()

	return cfg.ClientSecret, nil
}

// RefreshToken obtains a replacement for current. If another caller has
// already replaced current, the newer token is returned without a
// network round trip. When the refresh token is rejected the service
// logs in again with the stored credentials; if those are rejected too
// the credentials are deleted, a CredentialsExpiredEvent is published
// and the returned error wraps ErrCredentialsExpired.
//
// Cancelling ctx abandons the wait but not the shared refresh.
func (s *Service) RefreshToken(ctx context.Context, current *ghost.AuthToken) (*ghost.AuthToken, error) {
	ch := s.sf.DoChan(s.blogURL, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), current)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*ghost.AuthToken), nil
	}
}

func (s *Service) refresh(ctx context.Context, current *ghost.AuthToken) (*ghost.AuthToken, error) {
	held := s.Token()
	if held != nil && (current == nil || held.AccessToken != current.AccessToken) {
		return held, nil
	}

	if current == nil || current.RefreshToken == "" {
		return s.loginAgain(ctx)
	}

	secret, err := s.ClientSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	token, err := s.api.RefreshAuthToken(ctx, ghost.NewRefreshReqBody(current.RefreshToken, secret))
	if err == nil {
		token = token.WithRefreshFallback(current.RefreshToken)

		if err := s.accept(token); err != nil {
			return nil, err
		}

		s.logger.Debug("access token refreshed", slog.String("blog", s.blogURL))

		return token, nil
	}

	if !ghost.IsCredentialRejection(err) {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	s.logger.Info("refresh token rejected, logging in again", slog.String("blog", s.blogURL))

	return s.loginAgain(ctx)
}

// errCredentialsReplaced means the credentials a re-login replayed were
// saved over while its exchange was in flight.
var errCredentialsReplaced = errors.New("credentials replaced during re-login")

// loginAgain replays the stored credentials through the strategy the
// blog currently advertises. When a login saves new credentials while
// a replay is in flight, the replay's outcome is discarded and the new
// credentials are replayed instead.
func (s *Service) loginAgain(ctx context.Context) (*ghost.AuthToken, error) {
	for {
		token, err := s.replay(ctx, s.locks.Version(s.blogURL))
		if !errors.Is(err, errCredentialsReplaced) {
			return token, err
		}

		s.logger.Info("credentials replaced during re-login, retrying", slog.String("blog", s.blogURL))
	}
}

// replay runs one re-login with the credentials stored at version.
func (s *Service) replay(ctx context.Context, version uint64) (*ghost.AuthToken, error) {
	cfg, err := s.api.Configuration(ctx)
	if err != nil {
		return nil, fmt.Errorf("logging in again: %w", err)
	}

	s.mu.Lock()
	s.clientSecret = cfg.ClientSecret
	s.mu.Unlock()

	strategy := SelectStrategy(s.blogURL, cfg)

	body, err := strategy.AuthReqBody(ctx, s.store)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoCredentials) {
			return nil, s.expire(version, err)
		}

		return nil, fmt.Errorf("logging in again: %w", err)
	}

	token, err := s.api.GetAuthToken(ctx, body)
	if err != nil {
		if ghost.IsCredentialRejection(err) {
			return nil, s.expire(version, err)
		}

		return nil, fmt.Errorf("logging in again: %w", err)
	}

	unlock := s.locks.Lock(s.blogURL)
	// Newer credentials win; the token from the older ones is still valid.
	if s.locks.Version(s.blogURL) == version {
		err = s.store.SaveCredentials(s.blogURL, body)
		if err == nil {
			s.locks.saved(s.blogURL)
		}
	}
	unlock()

	if err != nil {
		return nil, fmt.Errorf("saving credentials: %w", err)
	}

	if err := s.accept(token); err != nil {
		return nil, err
	}

	s.logger.Info("logged in again", slog.String("blog", s.blogURL), slog.String("strategy", strategy.Name()))

	return token, nil
}

func (s *Service) accept(token *ghost.AuthToken) error {
	unlock := s.locks.Lock(s.blogURL)
	err := s.store.SetLoggedIn(s.blogURL, true)
	unlock()

	if err != nil {
		return fmt.Errorf("marking logged in: %w", err)
	}

	s.SetToken(token)

	return nil
}

// expire forgets the stored credentials read at version. Credentials
// saved since then are left alone and errCredentialsReplaced is
// returned. The event is published once per expiry; SetToken re-arms it.
func (s *Service) expire(version uint64, cause error) error {
	unlock := s.locks.Lock(s.blogURL)
	if s.locks.Version(s.blogURL) != version {
		unlock()
		return errCredentialsReplaced
	}

	delErr := s.store.DeleteCredentials(s.blogURL)
	logErr := s.store.SetLoggedIn(s.blogURL, false)
	unlock()

	if delErr != nil {
		s.logger.Warn("deleting expired credentials", slog.String("blog", s.blogURL), slog.String("error", delErr.Error()))
	}

	if logErr != nil {
		s.logger.Warn("clearing login flag", slog.String("blog", s.blogURL), slog.String("error", logErr.Error()))
	}

	s.mu.Lock()
	s.token = nil
	first := !s.expired
	s.expired = true
	s.mu.Unlock()

	if first {
		s.logger.Warn("credentials expired", slog.String("blog", s.blogURL))
		s.bus.Publish(events.CredentialsExpiredEvent{BlogURL: s.blogURL})
	}

	return fmt.Errorf("%w: %w", apperrors.ErrCredentialsExpired, cause)
}

// Logout revokes the session on the server and forgets local
// credentials. Revocation is best effort; local state is cleared even
// when the server cannot be reached.
func (s *Service) Logout(ctx context.Context) error {
	token := s.Token()

	if token != nil {
		s.revoke(ctx, token)
	}

	unlock := s.locks.Lock(s.blogURL)
	err := s.store.DeleteCredentials(s.blogURL)
	if err == nil {
		err = s.store.SetLoggedIn(s.blogURL, false)
	}
	unlock()

	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	s.logger.Info("logged out", slog.String("blog", s.blogURL))

	return nil
}

// revoke invalidates the refresh token first so the access token cannot
// be used to mint a new pair in between.
func (s *Service) revoke(ctx context.Context, token *ghost.AuthToken) {
	secret, err := s.ClientSecret(ctx)
	if err != nil {
		s.logger.Warn("revoking tokens", slog.String("blog", s.blogURL), slog.String("error", err.Error()))
		return
	}

	header := token.AuthHeader()

	if token.RefreshToken != "" {
		if err := s.api.RevokeAuthToken(ctx, header, ghost.RevokeRefreshToken(token.RefreshToken, secret)); err != nil {
			s.logger.Warn("revoking refresh token", slog.String("blog", s.blogURL), slog.String("error", err.Error()))
		}
	}

	if err := s.api.RevokeAuthToken(ctx, header, ghost.RevokeAccessToken(token.AccessToken, secret)); err != nil {
		s.logger.Warn("revoking access token", slog.String("blog", s.blogURL), slog.String("error", err.Error()))
	}
}

// Do calls fn with a valid Authorization header value. A 401 or 403
// from fn triggers one refresh and one retry.
func (s *Service) Do(ctx context.Context, fn func(ctx context.Context, authHeader string) error) error {
	token := s.Token()

	if token == nil {
		var err error

		token, err = s.RefreshToken(ctx, nil)
		if err != nil {
			return err
		}
	}

	err := fn(ctx, token.AuthHeader())
	if err == nil || !ghost.IsUnauthorized(err) {
		return err
	}

	s.logger.Debug("request unauthorized, refreshing", slog.String("blog", s.blogURL))

	token, err = s.RefreshToken(ctx, token)
	if err != nil {
		return err
	}

	return fn(ctx, token.AuthHeader())
}

func (s *Service) notify(t *ghost.AuthToken) {
	s.mu.Lock()
	ls := make([]TokenListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l.OnNewAuthToken(t)
	}
}
