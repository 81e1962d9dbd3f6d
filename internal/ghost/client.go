package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
)

// APIPath is the admin API root relative to the blog URL.
const APIPath = "ghost/api/v0.1/"

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// DefaultTimeout is used when no custom client is provided.
	DefaultTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads. Post lists with
	// mobiledoc and html can be large.
	maxAPIResponseBytes = 16 * 1024 * 1024

	// defaultPageLimit is the page size used when listing posts.
	defaultPageLimit = "all"
)

// Client talks to the admin API of a single Ghost blog.
type Client struct {
	httpClient *http.Client
	blogURL    string
	baseURL    string
}

// SameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. Scheme and port changes are allowed
// so an http -> https upgrade on the same host still works.
func SameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Hostname()
		if req.URL.Hostname() != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Hostname())
		}
	}

	return nil
}

// NewHTTPClient returns an http.Client with the given timeout and the
// same-host redirect policy.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: SameHostRedirectPolicy,
	}
}

// NewClient creates an API client for blogURL. If httpClient is nil a
// client with the default timeout is created.
func NewClient(blogURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}

	blogURL = strings.TrimRight(blogURL, "/")

	return &Client{
		httpClient: httpClient,
		blogURL:    blogURL,
		baseURL:    blogURL + "/" + APIPath,
	}
}

// BlogURL returns the blog this client talks to.
func (c *Client) BlogURL() string { return c.blogURL }

// do sends a request and decodes a JSON response into result. body may be
// nil. authHeader is sent verbatim when non-empty.
func (c *Client) do(ctx context.Context, method, endpoint, authHeader string, body, result any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return &TransientError{Err: fmt.Errorf("%w: sending request to %s: %w", apperrors.ErrAPIRequest, endpoint, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			RawBody:    sanitizeResponseBody(respBody),
		}
		_ = json.Unmarshal(respBody, &httpErr.Body)

		if isTransientStatus(resp.StatusCode) {
			return &TransientError{Err: httpErr}
		}

		return httpErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: decoding response from %s: %w", apperrors.ErrAPIResponse, endpoint, err)
		}
	}

	return nil
}

// Configuration fetches the public client configuration. It needs no
// authentication.
func (c *Client) Configuration(ctx context.Context) (*Configuration, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "configuration/", "", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching configuration: %w", err)
	}

	cfg, err := ParseConfiguration(raw)
	if err != nil {
		return nil, fmt.Errorf("fetching configuration: %w", err)
	}

	return cfg, nil
}

// ParseConfiguration flattens the first entry of a configuration
// response into string values.
func ParseConfiguration(data []byte) (*Configuration, error) {
	first := gjson.GetBytes(data, "configuration.0")
	if !first.IsObject() {
		return nil, fmt.Errorf("%w: missing configuration object", apperrors.ErrAPIResponse)
	}

	raw := make(map[string]string)

	first.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
			raw[key.String()] = ""
		case gjson.String:
			raw[key.String()] = value.Str
		default:
			raw[key.String()] = value.Raw
		}

		return true
	})

	return &Configuration{
		ClientSecret: raw["clientSecret"],
		GhostAuthID:  raw["ghostAuthId"],
		GhostAuthURL: raw["ghostAuthUrl"],
		BlogURL:      raw["blogUrl"],
		Raw:          raw,
	}, nil
}

// ClientSecret fetches the configuration and returns the client secret.
func (c *Client) ClientSecret(ctx context.Context) (string, error) {
	cfg, err := c.Configuration(ctx)
	if err != nil {
		return "", err
	}

	if cfg.ClientSecret == "" {
		return "", fmt.Errorf("%w: configuration has no client secret", apperrors.ErrAPIResponse)
	}

	return cfg.ClientSecret, nil
}

// GetAuthToken exchanges a password or authorization-code grant for a
// token pair.
func (c *Client) GetAuthToken(ctx context.Context, body AuthReqBody) (*AuthToken, error) {
	var token AuthToken
	if err := c.do(ctx, http.MethodPost, "authentication/token", "", body, &token); err != nil {
		return nil, fmt.Errorf("requesting auth token: %w", err)
	}

	token.CreatedAt = time.Now()

	return &token, nil
}

// RefreshAuthToken exchanges a refresh token for a new access token. The
// returned token usually has an empty RefreshToken.
func (c *Client) RefreshAuthToken(ctx context.Context, body RefreshReqBody) (*AuthToken, error) {
	var token AuthToken
	if err := c.do(ctx, http.MethodPost, "authentication/token", "", body, &token); err != nil {
		return nil, fmt.Errorf("refreshing auth token: %w", err)
	}

	token.CreatedAt = time.Now()

	return &token, nil
}

// RevokeAuthToken revokes a single access or refresh token.
func (c *Client) RevokeAuthToken(ctx context.Context, authHeader string, body RevokeReqBody) error {
	if err := c.do(ctx, http.MethodPost, "authentication/revoke", authHeader, body, nil); err != nil {
		return fmt.Errorf("revoking %s: %w", body.TokenTypeHint, err)
	}

	return nil
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, authHeader string) (*User, error) {
	var resp userList
	if err := c.do(ctx, http.MethodGet, "users/me/?include=roles&status=all", authHeader, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("%w: empty user list", apperrors.ErrAPIResponse)
	}

	return &resp.Users[0], nil
}

// Settings returns blog settings of type "blog" keyed by name.
func (c *Client) Settings(ctx context.Context, authHeader string) (map[string]string, error) {
	var resp settingList
	if err := c.do(ctx, http.MethodGet, "settings/?type=blog", authHeader, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching settings: %w", err)
	}

	out := make(map[string]string, len(resp.Settings))
	for _, s := range resp.Settings {
		out[s.Key] = s.Value
	}

	return out, nil
}

// ListPosts returns every post regardless of status, including mobiledoc.
func (c *Client) ListPosts(ctx context.Context, authHeader string) (*PostList, error) {
	q := url.Values{}
	q.Set("status", "all")
	q.Set("staticPages", "all")
	q.Set("formats", "mobiledoc,html")
	q.Set("include", "tags")
	q.Set("limit", defaultPageLimit)

	var resp PostList
	if err := c.do(ctx, http.MethodGet, "posts/?"+q.Encode(), authHeader, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &resp, nil
}

// GetPost fetches a single post by id.
func (c *Client) GetPost(ctx context.Context, authHeader, id string) (*Post, error) {
	q := url.Values{}
	q.Set("status", "all")
	q.Set("formats", "mobiledoc,html")
	q.Set("include", "tags")

	var resp PostList
	if err := c.do(ctx, http.MethodGet, "posts/"+url.PathEscape(id)+"/?"+q.Encode(), authHeader, nil, &resp); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("getting post %s: %w: %w", id, apperrors.ErrPostNotFound, err)
		}

		return nil, fmt.Errorf("getting post %s: %w", id, err)
	}

	if len(resp.Posts) == 0 {
		return nil, fmt.Errorf("getting post %s: %w", id, apperrors.ErrPostNotFound)
	}

	return &resp.Posts[0], nil
}

// CreatePost creates a post and returns the stored version.
func (c *Client) CreatePost(ctx context.Context, authHeader string, post *Post) (*Post, error) {
	var resp PostList
	if err := c.do(ctx, http.MethodPost, "posts/?include=tags", authHeader, PostList{Posts: []Post{*post}}, &resp); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}

	if len(resp.Posts) == 0 {
		return nil, fmt.Errorf("creating post: %w: empty post list", apperrors.ErrAPIResponse)
	}

	return &resp.Posts[0], nil
}

// UpdatePost replaces the post with the given id. UpdatedAt must carry the
// server's last known value or Ghost rejects the write as a collision.
func (c *Client) UpdatePost(ctx context.Context, authHeader, id string, post *Post) (*Post, error) {
	var resp PostList

	endpoint := "posts/" + url.PathEscape(id) + "/?include=tags"
	if err := c.do(ctx, http.MethodPut, endpoint, authHeader, PostList{Posts: []Post{*post}}, &resp); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("updating post %s: %w: %w", id, apperrors.ErrPostNotFound, err)
		}

		return nil, fmt.Errorf("updating post %s: %w", id, err)
	}

	if len(resp.Posts) == 0 {
		return nil, fmt.Errorf("updating post %s: %w: empty post list", id, apperrors.ErrAPIResponse)
	}

	return &resp.Posts[0], nil
}

// DeletePost deletes the post with the given id.
func (c *Client) DeletePost(ctx context.Context, authHeader, id string) error {
	if err := c.do(ctx, http.MethodDelete, "posts/"+url.PathEscape(id)+"/", authHeader, nil, nil); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("deleting post %s: %w: %w", id, apperrors.ErrPostNotFound, err)
		}

		return fmt.Errorf("deleting post %s: %w", id, err)
	}

	return nil
}
