// Package mcpserver registers MCP tools that expose a blog's posts as
// markdown. It adapts the posts package to the MCP SDK's tool handler
// interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
)

// PostService is the set of post operations the tools expose.
// *posts.Syncer implements it.
type PostService interface {
	List(ctx context.Context) ([]posts.Summary, error)
	ReadMarkdown(ctx context.Context, id string) (*ghost.Post, string, error)
	UpdateMarkdown(ctx context.Context, id, markdown string) (*ghost.Post, error)
	Create(ctx context.Context, fm posts.Frontmatter, markdown string) (*ghost.Post, error)
}

// RegisterTools adds all post tools to the given MCP server.
func RegisterTools(server *mcp.Server, svc PostService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ghost_list_posts",
		Description: "List every post on the blog with id, title, slug, status and tags. No content. Posts with editable=false use the rich editor and cannot be read or written as markdown.",
	}, listHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ghost_read_post",
		Description: "Read a post's metadata and markdown body by id.",
	}, readHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ghost_update_post",
		Description: "Replace the markdown body of an existing post. Metadata is left unchanged. Fails if the post was written with the rich editor.",
	}, updateHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ghost_create_post",
		Description: "Create a new post from markdown. Posts are created as drafts unless a status is given.",
	}, createHandler(svc))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// ListInput has no parameters.
type ListInput struct{}

// ReadInput holds parameters for ghost_read_post.
type ReadInput struct {
	ID string `json:"id" jsonschema:"post id as returned by ghost_list_posts"`
}

// UpdateInput holds parameters for ghost_update_post.
type UpdateInput struct {
	ID       string `json:"id" jsonschema:"post id"`
	Markdown string `json:"markdown" jsonschema:"full replacement markdown body"`
}

// CreateInput holds parameters for ghost_create_post.
type CreateInput struct {
	Title    string   `json:"title" jsonschema:"post title"`
	Markdown string   `json:"markdown" jsonschema:"markdown body"`
	Status   string   `json:"status,omitempty" jsonschema:"draft or published, defaults to draft"`
	Tags     []string `json:"tags,omitempty" jsonschema:"tag names"`
}

// --- Output types ---

// ListResult is the response for ghost_list_posts.
type ListResult struct {
	Total int             `json:"total"`
	Posts []posts.Summary `json:"posts"`
}

// ReadResult is the response for ghost_read_post.
type ReadResult struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Status    string   `json:"status"`
	Tags      []string `json:"tags,omitempty"`
	UpdatedAt string   `json:"updated_at"`
	Markdown  string   `json:"markdown"`
}

// WriteResult is the response for ghost_update_post and ghost_create_post.
type WriteResult struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// --- Handlers ---

func listHandler(svc PostService) mcp.ToolHandlerFor[ListInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, *ListResult, error) {
		list, err := svc.List(ctx)
		if err != nil {
			return nil, nil, err
		}

		result := &ListResult{Total: len(list), Posts: list}

		return textResult(result), result, nil
	}
}

func readHandler(svc PostService) mcp.ToolHandlerFor[ReadInput, *ReadResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReadInput) (*mcp.CallToolResult, *ReadResult, error) {
		if input.ID == "" {
			return nil, nil, fmt.Errorf("id is required")
		}

		p, md, err := svc.ReadMarkdown(ctx, input.ID)
		if err != nil {
			return nil, nil, err
		}

		result := &ReadResult{
			ID:        p.ID,
			Title:     p.Title,
			Slug:      p.Slug,
			Status:    p.Status,
			Tags:      p.TagNames(),
			UpdatedAt: formatTime(p.UpdatedAt),
			Markdown:  md,
		}

		return textResult(result), result, nil
	}
}

func updateHandler(svc PostService) mcp.ToolHandlerFor[UpdateInput, *WriteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, *WriteResult, error) {
		if input.ID == "" {
			return nil, nil, fmt.Errorf("id is required")
		}

		p, err := svc.UpdateMarkdown(ctx, input.ID, input.Markdown)
		if err != nil {
			return nil, nil, err
		}

		result := writeResult(p)

		return textResult(result), result, nil
	}
}

func createHandler(svc PostService) mcp.ToolHandlerFor[CreateInput, *WriteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateInput) (*mcp.CallToolResult, *WriteResult, error) {
		if input.Title == "" {
			return nil, nil, fmt.Errorf("title is required")
		}

		p, err := svc.Create(ctx, posts.Frontmatter{
			Title:  input.Title,
			Status: input.Status,
			Tags:   input.Tags,
		}, input.Markdown)
		if err != nil {
			return nil, nil, err
		}

		result := writeResult(p)

		return textResult(result), result, nil
	}
}

func writeResult(p *ghost.Post) *WriteResult {
	return &WriteResult{ID: p.ID, Slug: p.Slug, Status: p.Status, UpdatedAt: formatTime(p.UpdatedAt)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
