package e2e_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alexjbarnes/ghost-sync/internal/auth"
	"github.com/alexjbarnes/ghost-sync/internal/blogurl"
	"github.com/alexjbarnes/ghost-sync/internal/events"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/ghost/ghosttest"
	"github.com/alexjbarnes/ghost-sync/internal/mcpserver"
	"github.com/alexjbarnes/ghost-sync/internal/mobiledoc"
	"github.com/alexjbarnes/ghost-sync/internal/models"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
	"github.com/alexjbarnes/ghost-sync/internal/server"
	"github.com/alexjbarnes/ghost-sync/internal/state"
)

const (
	bearerToken = "e2e-bearer-token"
	passphrase  = "e2e passphrase"
)

// harness holds the full e2e test stack: a fake Ghost blog, a real state
// database populated by a real login, and the MCP tool server behind the
// HTTP mux.
type harness struct {
	URL    string
	Blog   *ghosttest.Server
	State  *state.State
	Bus    *events.Bus
	Client *http.Client
}

// newHarness logs in to a fake blog through the login orchestrator, wires
// the session into a syncer and MCP server via server.NewMux, and starts
// an httptest server.
func newHarness(t *testing.T) *harness {
	t.Helper()

	blog := ghosttest.New(t)
	blog.AddPost(ghost.Post{
		Title:     "Hello World",
		Status:    "published",
		Mobiledoc: mobiledoc.FromMarkdown("# Hello\n\nThis is a test post."),
	})

	st, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"), passphrase)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.DiscardHandler)
	bus := events.NewBus()
	httpClient := blog.Client()

	orch := auth.NewLoginOrchestrator(
		blogurl.NewNetworkValidator(httpClient, logger),
		func(u string) auth.API { return ghost.NewClient(u, httpClient) },
		envCredentials{State: st},
		bus, logger,
	)

	res, err := orch.Start(t.Context(), blog.URL)
	require.NoError(t, err)
	require.NoError(t, st.SaveToken(res.BlogURL, res.Token))

	api := ghost.NewClient(res.BlogURL, httpClient)
	svc := auth.NewService(res.BlogURL, api, st, bus, logger, auth.WithToken(res.Token))
	svc.Listen(tokenSaver{State: st, blogURL: res.BlogURL})
	syncer := posts.NewSyncer(api, svc, st, t.TempDir(), logger)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "ghost-sync-e2e", Version: "test"},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, syncer)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte(bearerToken), bcrypt.MinCost)
	require.NoError(t, err)

	mux := server.NewMux(server.MuxConfig{
		MCPHandler: mcpHandler,
		TokenHash:  string(hash),
		Logger:     logger,
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &harness{
		URL:    ts.URL,
		Blog:   blog,
		State:  st,
		Bus:    bus,
		Client: ts.Client(),
	}
}

// envCredentials answers every prompt with the fake blog's credentials
// and records the outcome in the state database.
type envCredentials struct {
	*state.State
}

func (envCredentials) EmailAndPassword(context.Context, models.PasswordAuthParams) (models.EmailPassword, error) {
	return models.EmailPassword{Email: ghosttest.Email, Password: ghosttest.Password}, nil
}

func (envCredentials) GhostAuthCode(context.Context, models.GhostAuthParams) (string, error) {
	return ghosttest.AuthCode, nil
}

// tokenSaver persists refreshed tokens the way the binaries do.
type tokenSaver struct {
	*state.State
	blogURL string
}

func (s tokenSaver) OnNewAuthToken(t *ghost.AuthToken) {
	_ = s.SaveToken(s.blogURL, t)
}

// mcpSession connects an MCP client session to the harness using the
// given Bearer token. Uses the MCP SDK's StreamableClientTransport with a
// custom HTTP RoundTripper that injects the Authorization header.
func (h *harness) mcpSession(t *testing.T, token string) *mcp.ClientSession {
	t.Helper()

	transport := &mcp.StreamableClientTransport{
		Endpoint: h.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{
				token: token,
				base:  h.Client.Transport,
			},
			Timeout: 10 * time.Second,
		},
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "e2e-test-client", Version: "test"},
		nil,
	)

	session, err := client.Connect(t.Context(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

// postMCP sends an empty JSON-RPC body to /mcp with the given
// Authorization header, if any.
func (h *harness) postMCP(t *testing.T, authHeader string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, h.URL+"/mcp", strings.NewReader("{}"))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := h.Client.Do(req)
	require.NoError(t, err)

	return resp
}

// bearerTransport is an http.RoundTripper that injects a Bearer token
// into every request's Authorization header.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (bt *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+bt.token)

	return bt.base.RoundTrip(req)
}
