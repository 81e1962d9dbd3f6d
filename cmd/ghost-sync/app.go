package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexjbarnes/ghost-sync/internal/auth"
	"github.com/alexjbarnes/ghost-sync/internal/blogurl"
	"github.com/alexjbarnes/ghost-sync/internal/config"
	"github.com/alexjbarnes/ghost-sync/internal/events"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
	"github.com/alexjbarnes/ghost-sync/internal/state"
)

var errNotLoggedIn = errors.New("not logged in, run `ghost-sync login` first")

// app holds what every command shares. State is opened per command so
// two invocations never contend for the database lock longer than needed.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	httpClient *http.Client
	bus        *events.Bus
	locks      *auth.BlogLocker
}

func newApp(cfg *config.Config, logger *slog.Logger, in io.Reader, out, errOut io.Writer) *app {
	a := &app{
		cfg:        cfg,
		logger:     logger,
		in:         in,
		out:        out,
		errOut:     errOut,
		httpClient: ghost.NewHTTPClient(cfg.HTTPTimeout),
		bus:        events.NewBus(),
		locks:      auth.NewBlogLocker(),
	}

	events.LogSubscriber(a.bus, logger)
	events.Subscribe(a.bus, func(e events.CredentialsExpiredEvent) {
		fmt.Fprintf(a.errOut, "Stored credentials for %s are no longer valid. Run `ghost-sync login` again.\n", e.BlogURL)
	})

	return a
}

func (a *app) openState() (*state.State, error) {
	st, err := state.LoadAt(a.cfg.StatePath, a.cfg.StatePassphrase)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	return st, nil
}

func (a *app) apiFactory(blogURL string) auth.API {
	return ghost.NewClient(blogURL, a.httpClient)
}

func (a *app) validator() auth.BlogURLValidator {
	return blogurl.NewNetworkValidator(a.httpClient, a.logger)
}

// session is a logged-in blog ready for API calls.
type session struct {
	blogURL string
	client  *ghost.Client
	svc     *auth.Service
	state   *state.State
}

// tokenSaver persists every token the service obtains.
type tokenSaver struct {
	st      *state.State
	blogURL string
	logger  *slog.Logger
}

func (s tokenSaver) OnNewAuthToken(t *ghost.AuthToken) {
	if err := s.st.SaveToken(s.blogURL, t); err != nil {
		s.logger.Warn("saving token", slog.String("blog", s.blogURL), slog.String("error", err.Error()))
	}
}

// openSession resolves the blog to use and restores its session. The
// caller closes the returned state.
func (a *app) openSession(ctx context.Context, blogArg string) (*session, error) {
	st, err := a.openState()
	if err != nil {
		return nil, err
	}

	blogURL, err := a.resolveBlog(st, blogArg)
	if err != nil {
		st.Close()
		return nil, err
	}

	if !st.IsLoggedIn(blogURL) {
		st.Close()
		return nil, fmt.Errorf("%s: %w", blogURL, errNotLoggedIn)
	}

	token, err := st.Token(blogURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("reading token: %w", err)
	}

	client := ghost.NewClient(blogURL, a.httpClient)
	svc := auth.NewService(blogURL, client, st, a.bus, a.logger,
		auth.WithServiceLocker(a.locks), auth.WithToken(token))
	svc.Listen(tokenSaver{st: st, blogURL: blogURL, logger: a.logger})

	if token != nil && token.IsExpired(time.Now()) {
		a.logger.Debug("stored token expired, refreshing", slog.String("blog", blogURL))

		if _, err := svc.RefreshToken(ctx, token); err != nil {
			st.Close()
			return nil, err
		}
	}

	return &session{blogURL: blogURL, client: client, svc: svc, state: st}, nil
}

func (s *session) Close() error {
	return s.state.Close()
}

func (a *app) syncer(s *session) *posts.Syncer {
	return posts.NewSyncer(s.client, s.svc, s.state, a.cfg.PostsDir, a.logger,
		posts.WithConcurrency(a.cfg.ExportConcurrency))
}

// resolveBlog picks the blog from the argument, the environment or the
// saved current blog, in that order.
func (a *app) resolveBlog(st *state.State, blogArg string) (string, error) {
	if blogArg != "" {
		return blogurl.Normalize(blogArg), nil
	}

	u, err := a.cfg.RequireBlogURL(st.CurrentBlog())
	if err != nil {
		return "", err
	}

	return blogurl.Normalize(u), nil
}
