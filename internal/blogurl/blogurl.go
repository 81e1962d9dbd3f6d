// Package blogurl canonicalizes user-entered blog addresses and checks
// that a Ghost admin API answers behind them.
package blogurl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/logging"
)

// configPath is requested below the candidate URL. It needs no auth and
// exists on every Ghost 1.x install.
const configPath = "/" + ghost.APIPath + "configuration/"

// Normalize trims whitespace and strips a trailing "/ghost" admin path and
// trailing slashes. It does not add a scheme.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, "/")

	// "https://ghost" is a host, not an admin path.
	if !strings.HasSuffix(u, "//ghost") && u != "ghost" {
		u = strings.TrimSuffix(u, "/ghost")
	}

	return strings.TrimRight(u, "/")
}

// HasScheme reports whether u starts with http:// or https://.
func HasScheme(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// NetworkValidator checks candidate URLs over HTTP.
type NetworkValidator struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNetworkValidator returns a validator using httpClient. A nil client
// gets the default timeout and same-host redirect policy.
func NewNetworkValidator(httpClient *http.Client, logger *slog.Logger) *NetworkValidator {
	if httpClient == nil {
		httpClient = ghost.NewHTTPClient(ghost.DefaultTimeout)
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &NetworkValidator{httpClient: httpClient, logger: logger}
}

// CheckGhostBlog normalizes raw and returns the canonical URL of the blog
// behind it. Without a scheme https is tried before http. When the check
// is redirected the redirect target becomes the canonical URL.
//
// A 404, or a host that cannot be reached on any candidate scheme, yields
// an error wrapping ErrURLNotFound. The underlying transport error stays
// in the chain for classification.
func (v *NetworkValidator) CheckGhostBlog(ctx context.Context, raw string) (string, error) {
	base := Normalize(raw)
	if base == "" {
		return "", fmt.Errorf("%w: empty address", apperrors.ErrURLNotFound)
	}

	candidates := []string{base}
	if !HasScheme(base) {
		candidates = []string{"https://" + base, "http://" + base}
	}

	var lastErr error

	for _, c := range candidates {
		canonical, err := v.check(ctx, c)
		if err == nil {
			return canonical, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		v.logger.Debug("blog check failed", slog.String("url", c), slog.String("error", err.Error()))
		lastErr = err
	}

	return "", lastErr
}

func (v *NetworkValidator) check(ctx context.Context, candidate string) (string, error) {
	if _, err := url.Parse(candidate); err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrURLNotFound, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate+configPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrURLNotFound, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", apperrors.ErrURLNotFound, candidate, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", apperrors.ErrURLNotFound, candidate)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: probing %s returned status %d", apperrors.ErrAPIResponse, candidate, resp.StatusCode)
	}

	return canonicalFromResponse(resp, candidate), nil
}

// canonicalFromResponse recovers the blog URL from the final request the
// client made, which differs from candidate after a redirect.
func canonicalFromResponse(resp *http.Response, candidate string) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return candidate
	}

	final := *resp.Request.URL
	final.RawQuery = ""
	final.Fragment = ""

	path, ok := strings.CutSuffix(final.Path, configPath)
	if !ok {
		// Redirected somewhere that isn't the API; keep what the user typed.
		return candidate
	}

	final.Path = path
	final.RawPath = ""

	return Normalize(final.String())
}

// IsNotFound reports whether err means no blog lives at the address.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrURLNotFound)
}
