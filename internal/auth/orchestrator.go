package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexjbarnes/ghost-sync/internal/blogurl"
	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/events"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

// ErrSuperseded is returned by a Start call that was overtaken by a
// later Start on the same orchestrator.
var ErrSuperseded = errors.New("login attempt superseded by a newer one")

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	BlogURL  string
	Token    *ghost.AuthToken
	Strategy string
}

// LoginOrchestrator drives the interactive login flow. Only the most
// recent Start is live; earlier runs are cancelled and their results
// dropped without notifying listeners.
type LoginOrchestrator struct {
	validator   BlogURLValidator
	apiFactory  APIFactory
	store       CredentialStore
	bus         *events.Bus
	locks       *BlogLocker
	logger      *slog.Logger
	maxAttempts int

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	listeners map[int]LoginListener
	nextID    int
}

// OrchestratorOption configures a LoginOrchestrator.
type OrchestratorOption func(*LoginOrchestrator)

// WithMaxAttempts bounds the number of credential attempts. Zero, the
// default, retries until the context is cancelled.
func WithMaxAttempts(n int) OrchestratorOption {
	return func(o *LoginOrchestrator) { o.maxAttempts = n }
}

// WithLocker shares a BlogLocker, normally with a Service.
func WithLocker(l *BlogLocker) OrchestratorOption {
	return func(o *LoginOrchestrator) { o.locks = l }
}

// NewLoginOrchestrator wires a login flow. bus may be nil.
func NewLoginOrchestrator(validator BlogURLValidator, apiFactory APIFactory, store CredentialStore,
	bus *events.Bus, logger *slog.Logger, opts ...OrchestratorOption,
) *LoginOrchestrator {
	o := &LoginOrchestrator{
		validator:  validator,
		apiFactory: apiFactory,
		store:      store,
		bus:        bus,
		locks:      NewBlogLocker(),
		logger:     logger,
		listeners:  make(map[int]LoginListener),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// NormalizeBlogURL trims whitespace and a trailing /ghost admin path.
func NormalizeBlogURL(raw string) string {
	return blogurl.Normalize(raw)
}

// Listen registers l and returns a function that removes it.
func (o *LoginOrchestrator) Listen(l LoginListener) (cancel func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = l
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Start runs a login for rawBlogURL. Steps run strictly in order: URL
// validation, configuration fetch, then a loop of credential requests
// and token exchanges that repeats while the server rejects the
// credentials. On success credentials are saved and the blog is marked
// logged in before listeners hear OnLoginDone.
func (o *LoginOrchestrator) Start(ctx context.Context, rawBlogURL string) (*LoginResult, error) {
	ctx, gen := o.begin(ctx)
	defer o.finish(gen)

	normalized := NormalizeBlogURL(rawBlogURL)

	blogURL, err := o.validator.CheckGhostBlog(ctx, normalized)
	if err != nil {
		return nil, o.fail(gen, normalized, fmt.Errorf("validating blog url: %w", err))
	}

	o.logger.Debug("blog url validated", slog.String("blog", blogURL))

	api := o.apiFactory(blogURL)

	cfg, err := api.Configuration(ctx)
	if err != nil {
		return nil, o.fail(gen, blogURL, err)
	}

	strategy := SelectStrategy(blogURL, cfg)
	o.logger.Debug("login strategy selected", slog.String("blog", blogURL), slog.String("strategy", strategy.Name()))

	if !o.notify(gen, func(l LoginListener) { l.OnStartWaiting() }) {
		return nil, ErrSuperseded
	}

	for attempt := 1; ; attempt++ {
		body, err := strategy.AuthReqBody(ctx, o.store)
		if err != nil {
			return nil, o.fail(gen, blogURL, err)
		}

		token, err := api.GetAuthToken(ctx, body)
		if err == nil {
			return o.succeed(gen, blogURL, strategy, body, token)
		}

		if !ghost.IsCredentialRejection(err) {
			return nil, o.fail(gen, blogURL, err)
		}

		if !o.current(gen) {
			return nil, ErrSuperseded
		}

		o.logger.Info("credentials rejected",
			slog.String("blog", blogURL),
			slog.Int("attempt", attempt),
		)

		o.notify(gen, func(l LoginListener) { l.OnAPIError(errorMessage(err), err) })
		o.bus.Publish(events.LoginErrorEvent{BlogURL: blogURL, Err: err})

		if o.maxAttempts > 0 && attempt >= o.maxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", apperrors.ErrInvalidCredentials, attempt, err)
		}
	}
}

func (o *LoginOrchestrator) succeed(gen uint64, blogURL string, strategy Strategy, body ghost.AuthReqBody, token *ghost.AuthToken) (*LoginResult, error) {
	unlock := o.locks.Lock(blogURL)

	// Checked under o.mu so a newer Start cannot begin between the check
	// and the writes.
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		unlock()

		return nil, ErrSuperseded
	}

	err := o.store.SaveCredentials(blogURL, body)
	if err == nil {
		o.locks.saved(blogURL)
		err = o.store.SetLoggedIn(blogURL, true)
	}
	o.mu.Unlock()
	unlock()

	if err != nil {
		return nil, o.fail(gen, blogURL, fmt.Errorf("saving credentials: %w", err))
	}

	o.logger.Info("logged in", slog.String("blog", blogURL), slog.String("strategy", strategy.Name()))

	o.notify(gen, func(l LoginListener) { l.OnLoginDone() })
	o.bus.Publish(events.LoginDoneEvent{BlogURL: blogURL})

	return &LoginResult{BlogURL: blogURL, Token: token, Strategy: strategy.Name()}, nil
}

// fail reports a terminal error unless the run was superseded.
func (o *LoginOrchestrator) fail(gen uint64, blogURL string, err error) error {
	if !o.current(gen) {
		return ErrSuperseded
	}

	errType := ClassifyError(err)

	o.logger.Warn("login failed",
		slog.String("blog", blogURL),
		slog.String("type", errType.String()),
		slog.String("error", err.Error()),
	)

	o.notify(gen, func(l LoginListener) { l.OnNetworkError(errType, err) })
	o.bus.Publish(events.LoginErrorEvent{BlogURL: blogURL, Err: err})

	return err
}

func (o *LoginOrchestrator) begin(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}

	o.gen++
	o.cancel = cancel

	return ctx, o.gen
}

func (o *LoginOrchestrator) finish(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen == o.gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *LoginOrchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return gen == o.gen
}

// notify calls fn for each listener if gen is still current and reports
// whether it did.
func (o *LoginOrchestrator) notify(gen uint64, fn func(LoginListener)) bool {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return false
	}

	ls := make([]LoginListener, 0, len(o.listeners))
	for _, l := range o.listeners {
		ls = append(ls, l)
	}
	o.mu.Unlock()

	for _, l := range ls {
		fn(l)
	}

	return true
}

// errorMessage extracts the server's explanation from err.
func errorMessage(err error) string {
	var httpErr *ghost.HTTPError
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
	}

	return err.Error()
}
