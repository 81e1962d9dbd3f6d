package blogurl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

func TestNormalize(t *testing.T) {
	want := "https://my-blog.com"

	for _, raw := range []string{
		"  https://my-blog.com         ",
		"  https://my-blog.com/ghost   ",
		"  https://my-blog.com/ghost/  ",
		"https://my-blog.com/",
		"https://my-blog.com//",
	} {
		assert.Equal(t, want, Normalize(raw), "input %q", raw)
	}
}

func TestNormalize_KeepsSubfolderAndHost(t *testing.T) {
	assert.Equal(t, "https://example.com/blog", Normalize("https://example.com/blog/ghost/"))
	assert.Equal(t, "https://ghost", Normalize("https://ghost/"))
	assert.Equal(t, "example.com", Normalize(" example.com/ghost "))
	assert.Equal(t, "https://example.com/ghosts", Normalize("https://example.com/ghosts"))
}

func TestHasScheme(t *testing.T) {
	assert.True(t, HasScheme("https://a"))
	assert.True(t, HasScheme("HTTP://a"))
	assert.False(t, HasScheme("a.com"))
	assert.False(t, HasScheme("ftp://a"))
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, configPath), "path %s", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
}

func TestCheckGhostBlog_SimpleHTTPS(t *testing.T) {
	srv := httptest.NewTLSServer(okHandler(t))
	defer srv.Close()

	got, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, got)
}

func TestCheckGhostBlog_SimpleHTTP(t *testing.T) {
	srv := httptest.NewServer(okHandler(t))
	defer srv.Close()

	got, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, got)
}

func TestCheckGhostBlog_404(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL+"/THIS_DOESNT_EXIST")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrURLNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCheckGhostBlog_TrailingSlash(t *testing.T) {
	srv := httptest.NewTLSServer(okHandler(t))
	defer srv.Close()

	got, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL, got)
}

func TestCheckGhostBlog_HTTPToHTTPSRedirect(t *testing.T) {
	tlsSrv := httptest.NewTLSServer(okHandler(t))
	defer tlsSrv.Close()

	target, err := url.Parse(tlsSrv.URL)
	require.NoError(t, err)

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := *r.URL
		u.Scheme = "https"
		u.Host = target.Host
		http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
	}))
	defer plain.Close()

	client := tlsSrv.Client()
	client.CheckRedirect = ghost.SameHostRedirectPolicy

	got, err := NewNetworkValidator(client, nil).CheckGhostBlog(context.Background(), plain.URL)
	require.NoError(t, err)
	assert.Equal(t, tlsSrv.URL, got)
}

func TestCheckGhostBlog_UnderSubFolder(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog"+configPath {
			http.NotFound(w, r)
			return
		}
	}))
	defer srv.Close()

	got, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL+"/blog/ghost/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/blog", got)
}

// stubTransport answers every request with 200, standing in for DNS
// resolution of hosts that only exist in the test.
type stubTransport struct{ hosts []string }

func (s *stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.hosts = append(s.hosts, r.URL.Host)

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    r,
	}, nil
}

func TestCheckGhostBlog_UnderSubDomain(t *testing.T) {
	tr := &stubTransport{}
	client := &http.Client{Transport: tr}

	got, err := NewNetworkValidator(client, nil).CheckGhostBlog(context.Background(), "https://blog.example.test:8443")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.test:8443", got)
	assert.Equal(t, []string{"blog.example.test:8443"}, tr.hosts)
}

func TestCheckGhostBlog_NoSchemePrefersHTTPS(t *testing.T) {
	tr := &stubTransport{}

	got, err := NewNetworkValidator(&http.Client{Transport: tr}, nil).CheckGhostBlog(context.Background(), "  my-blog.test/ghost/ ")
	require.NoError(t, err)
	assert.Equal(t, "https://my-blog.test", got)
	assert.Len(t, tr.hosts, 1)
}

func TestCheckGhostBlog_NoSchemeFallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(okHandler(t))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")

	got, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, got)
}

func TestCheckGhostBlog_Unreachable(t *testing.T) {
	srv := httptest.NewServer(okHandler(t))
	addr := srv.URL
	srv.Close()

	_, err := NewNetworkValidator(nil, nil).CheckGhostBlog(context.Background(), addr)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrURLNotFound)
}

func TestCheckGhostBlog_ServerErrorIsNotAGhostBlog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAPIResponse)
	assert.False(t, IsNotFound(err))
}

func TestCheckGhostBlog_Empty(t *testing.T) {
	_, err := NewNetworkValidator(nil, nil).CheckGhostBlog(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrURLNotFound)
}

func TestCheckGhostBlog_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(okHandler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNetworkValidator(srv.Client(), nil).CheckGhostBlog(ctx, strings.TrimPrefix(srv.URL, "http://"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewNetworkValidator_NilDependenciesDefault(t *testing.T) {
	v := NewNetworkValidator(nil, nil)
	require.NotNil(t, v.logger)
	require.NotNil(t, v.httpClient)
	assert.NotPanics(t, func() { v.logger.Info("discarded") })
}
