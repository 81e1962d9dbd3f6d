package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/ghost/ghosttest"
	"github.com/alexjbarnes/ghost-sync/internal/mobiledoc"
	"github.com/alexjbarnes/ghost-sync/internal/models"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
)

type staticAuth struct {
	blog   string
	header string
}

func (a staticAuth) BlogURL() string { return a.blog }

func (a staticAuth) Do(ctx context.Context, fn func(context.Context, string) error) error {
	return fn(ctx, a.header)
}

type noRecords struct{}

func (noRecords) PostRecord(string, string) (*models.PostRecord, error)       { return nil, nil }
func (noRecords) PostRecordByPath(string, string) (*models.PostRecord, error) { return nil, nil }
func (noRecords) SetPostRecord(string, models.PostRecord) error               { return nil }

// testSetup starts a fake blog with two posts, registers tools on an MCP
// server, and returns a connected client session for calling tools.
func testSetup(t *testing.T) (*mcp.ClientSession, *ghosttest.Server) {
	t.Helper()

	srv := ghosttest.New(t)
	client := ghost.NewClient(srv.URL, srv.Client())

	tok, err := client.GetAuthToken(context.Background(),
		ghost.PasswordAuthBody(ghosttest.ClientSecret, ghosttest.Email, ghosttest.Password))
	require.NoError(t, err)

	srv.AddPost(ghost.Post{
		Title:     "Hello World",
		Status:    "published",
		Tags:      []ghost.Tag{{Name: "intro"}},
		Mobiledoc: mobiledoc.FromMarkdown("# Hello\n\nFirst post."),
	})
	srv.AddPost(ghost.Post{
		Title:     "Rich",
		Mobiledoc: `{"version":"0.3.1","markups":[],"atoms":[],"cards":[],"sections":[]}`,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := posts.NewSyncer(client, staticAuth{blog: srv.URL, header: tok.AuthHeader()}, noRecords{}, t.TempDir(), logger)

	server := mcp.NewServer(
		&mcp.Implementation{Name: "ghost-sync-mcp-test", Version: "test"},
		nil,
	)
	RegisterTools(server, syncer)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()
	_, err = server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	mcpClient := mcp.NewClient(
		&mcp.Implementation{Name: "test-client", Version: "test"},
		nil,
	)
	session, err := mcpClient.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session, srv
}

// callTool is a helper that calls a tool and returns the result.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

// extractJSON unmarshals the first text content from a CallToolResult.
func extractJSON(t *testing.T, result *mcp.CallToolResult, dest any) {
	t.Helper()
	require.NotEmpty(t, result.Content, "result has no content")
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")
	require.NoError(t, json.Unmarshal([]byte(tc.Text), dest))
}

func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)

	return result.Content[0].(*mcp.TextContent).Text
}

func TestListTools(t *testing.T) {
	session, _ := testSetup(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"ghost_list_posts", "ghost_read_post", "ghost_update_post", "ghost_create_post"}, names)
}

func TestListPosts(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_list_posts", nil)
	assert.False(t, result.IsError)

	var out ListResult
	extractJSON(t, result, &out)
	require.Equal(t, 2, out.Total)

	assert.Equal(t, "Hello World", out.Posts[0].Title)
	assert.True(t, out.Posts[0].Editable)
	assert.Equal(t, []string{"intro"}, out.Posts[0].Tags)
	assert.False(t, out.Posts[1].Editable)
}

func TestReadPost(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_read_post", map[string]any{"id": "1"})
	assert.False(t, result.IsError)

	var out ReadResult
	extractJSON(t, result, &out)
	assert.Equal(t, "Hello World", out.Title)
	assert.Equal(t, "published", out.Status)
	assert.Equal(t, "# Hello\n\nFirst post.", out.Markdown)
	assert.NotEmpty(t, out.UpdatedAt)
}

func TestReadPost_RichEditor(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_read_post", map[string]any{"id": "2"})
	assert.Contains(t, errorText(t, result), "Koenig")
}

func TestReadPost_NotFound(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_read_post", map[string]any{"id": "99"})
	assert.Contains(t, errorText(t, result), "not found")
}

func TestReadPost_MissingID(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_read_post", map[string]any{"id": ""})
	assert.Contains(t, errorText(t, result), "id is required")
}

func TestUpdatePost(t *testing.T) {
	session, srv := testSetup(t)
	result := callTool(t, session, "ghost_update_post", map[string]any{
		"id":       "1",
		"markdown": "rewritten",
	})
	assert.False(t, result.IsError)

	var out WriteResult
	extractJSON(t, result, &out)
	assert.Equal(t, "1", out.ID)

	p, ok := srv.Post("1")
	require.True(t, ok)
	md, err := mobiledoc.ToMarkdown(p.Mobiledoc)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", md)
	assert.Equal(t, "Hello World", p.Title, "metadata untouched")
}

func TestUpdatePost_RichEditor(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_update_post", map[string]any{
		"id":       "2",
		"markdown": "x",
	})
	assert.Contains(t, errorText(t, result), "Koenig")
}

func TestCreatePost(t *testing.T) {
	session, srv := testSetup(t)
	result := callTool(t, session, "ghost_create_post", map[string]any{
		"title":    "From MCP",
		"markdown": "body",
		"tags":     []string{"ai"},
	})
	assert.False(t, result.IsError)

	var out WriteResult
	extractJSON(t, result, &out)
	assert.Equal(t, "from-mcp", out.Slug)
	assert.Equal(t, "draft", out.Status)

	p, ok := srv.Post(out.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"ai"}, p.TagNames())
}

func TestCreatePost_MissingTitle(t *testing.T) {
	session, _ := testSetup(t)
	result := callTool(t, session, "ghost_create_post", map[string]any{
		"title":    "",
		"markdown": "body",
	})
	assert.Contains(t, errorText(t, result), "title is required")
}
