package posts

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/mobiledoc"
)

// Summary is a one-line view of a remote post.
type Summary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags,omitempty"`
	Editable bool     `json:"editable"`
	Path     string   `json:"path,omitempty"`
}

// List returns every remote post. Editable is false for posts that are
// not markdown-only. Path is set for posts that have a local file.
func (s *Syncer) List(ctx context.Context) ([]Summary, error) {
	list, err := s.listPosts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(list.Posts))

	for i := range list.Posts {
		p := &list.Posts[i]

		sum := Summary{
			ID:       p.ID,
			Title:    p.Title,
			Slug:     p.Slug,
			Status:   p.Status,
			Tags:     p.TagNames(),
			Editable: mobiledoc.HasOnlyMarkdownCard(p.Mobiledoc),
		}

		if rec, err := s.records.PostRecord(s.auth.BlogURL(), p.ID); err == nil && rec != nil {
			sum.Path = rec.Path
		}

		out = append(out, sum)
	}

	return out, nil
}

// ReadMarkdown fetches a post and its markdown body.
func (s *Syncer) ReadMarkdown(ctx context.Context, id string) (*ghost.Post, string, error) {
	p, err := s.getPost(ctx, id)
	if err != nil {
		return nil, "", err
	}

	md, err := mobiledoc.ToMarkdown(p.Mobiledoc)
	if err != nil {
		return nil, "", fmt.Errorf("post %s: %w", id, err)
	}

	return p, md, nil
}

// UpdateMarkdown replaces the body of a remote post directly, without a
// local file. The rest of the mobiledoc is kept.
func (s *Syncer) UpdateMarkdown(ctx context.Context, id, markdown string) (*ghost.Post, error) {
	p, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := mobiledoc.InsertMarkdown(markdown, p.Mobiledoc)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", id, err)
	}

	p.Mobiledoc = doc
	p.HTML = ""

	var updated *ghost.Post

	err = s.auth.Do(ctx, func(ctx context.Context, authHeader string) error {
		var err error
		updated, err = s.api.UpdatePost(ctx, authHeader, id, p)

		return err
	})
	if err != nil {
		if ghost.StatusCode(err) == 409 {
			return nil, fmt.Errorf("post %s: %w: %w", id, apperrors.ErrConflict, err)
		}

		return nil, err
	}

	s.logger.Info("updated post markdown", slog.String("id", id))

	return updated, nil
}

// Create makes a new draft post from markdown.
func (s *Syncer) Create(ctx context.Context, fm Frontmatter, markdown string) (*ghost.Post, error) {
	if fm.Status == "" {
		fm.Status = "draft"
	}

	p := &ghost.Post{Mobiledoc: mobiledoc.FromMarkdown(markdown)}
	fm.Apply(p)

	created, err := s.createPost(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("created post", slog.String("id", created.ID))

	return created, nil
}

func (s *Syncer) listPosts(ctx context.Context) (*ghost.PostList, error) {
	var list *ghost.PostList

	err := s.auth.Do(ctx, func(ctx context.Context, authHeader string) error {
		var err error
		list, err = s.api.ListPosts(ctx, authHeader)

		return err
	})

	return list, err
}

func (s *Syncer) getPost(ctx context.Context, id string) (*ghost.Post, error) {
	var p *ghost.Post

	err := s.auth.Do(ctx, func(ctx context.Context, authHeader string) error {
		var err error
		p, err = s.api.GetPost(ctx, authHeader, id)

		return err
	})

	return p, err
}

func (s *Syncer) createPost(ctx context.Context, p *ghost.Post) (*ghost.Post, error) {
	var created *ghost.Post

	err := s.auth.Do(ctx, func(ctx context.Context, authHeader string) error {
		var err error
		created, err = s.api.CreatePost(ctx, authHeader, p)

		return err
	})

	return created, err
}
