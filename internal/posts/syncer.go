// Package posts keeps a directory of markdown files in step with the
// posts of a Ghost blog. Each post is one <slug>.md file with YAML
// frontmatter. Only posts whose mobiledoc holds a single markdown card
// can be edited this way; the rest are reported and left alone.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/mobiledoc"
	"github.com/alexjbarnes/ghost-sync/internal/models"
)

const (
	defaultConcurrency = 4

	// diffCleanupThreshold is the diff count above which semantic cleanup
	// runs before building merge patches.
	diffCleanupThreshold = 2
)

// ErrLocalChanges is returned when pulling would overwrite a file that
// was edited since it was last written by this package.
var ErrLocalChanges = errors.New("local file has unpushed changes")

// PostAPI is the part of the Ghost client the syncer needs.
type PostAPI interface {
	ListPosts(ctx context.Context, authHeader string) (*ghost.PostList, error)
	GetPost(ctx context.Context, authHeader, id string) (*ghost.Post, error)
	CreatePost(ctx context.Context, authHeader string, post *ghost.Post) (*ghost.Post, error)
	UpdatePost(ctx context.Context, authHeader, id string, post *ghost.Post) (*ghost.Post, error)
}

// Authorizer runs API calls with a valid session. *auth.Service
// implements it.
type Authorizer interface {
	BlogURL() string
	Do(ctx context.Context, fn func(ctx context.Context, authHeader string) error) error
}

// RecordStore persists the link between remote posts and local files.
// *state.State implements it.
type RecordStore interface {
	PostRecord(blogURL, postID string) (*models.PostRecord, error)
	PostRecordByPath(blogURL, path string) (*models.PostRecord, error)
	SetPostRecord(blogURL string, rec models.PostRecord) error
}

// Syncer moves post content between a blog and a local directory.
type Syncer struct {
	api         PostAPI
	auth        Authorizer
	records     RecordStore
	dir         string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithConcurrency bounds the number of posts exported at once.
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSyncer returns a Syncer writing into dir.
func NewSyncer(api PostAPI, auth Authorizer, records RecordStore, dir string, logger *slog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		api:         api,
		auth:        auth,
		records:     records,
		dir:         dir,
		concurrency: defaultConcurrency,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dir returns the posts directory.
func (s *Syncer) Dir() string { return s.dir }

// Skipped is a post that export left alone.
type Skipped struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// ExportResult lists what Export did.
type ExportResult struct {
	Written []string  `json:"written"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Export writes every editable post to the posts directory. Posts that
// are not markdown-only, or whose file has unpushed edits, are skipped.
func (s *Syncer) Export(ctx context.Context) (*ExportResult, error) {
	list, err := s.listPosts(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating posts dir: %w", err)
	}

	var (
		mu  sync.Mutex
		res = &ExportResult{Written: []string{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range list.Posts {
		p := &list.Posts[i]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			name, err := s.writePost(p)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				res.Written = append(res.Written, name)
			case errors.Is(err, apperrors.ErrUnsupportedDocument), errors.Is(err, ErrLocalChanges):
				s.logger.Info("skipping post", slog.String("id", p.ID), slog.String("reason", err.Error()))
				res.Skipped = append(res.Skipped, Skipped{ID: p.ID, Title: p.Title, Reason: reason(err)})
			default:
				return err
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("export complete",
		slog.Int("written", len(res.Written)),
		slog.Int("skipped", len(res.Skipped)),
	)

	return res, nil
}

// Pull writes a single post to its file and returns the file name.
func (s *Syncer) Pull(ctx context.Context, id string) (string, error) {
	p, err := s.getPost(ctx, id)
	if err != nil {
		return "", err
	}

	return s.writePost(p)
}

// writePost renders p into its file and records it as the merge base.
func (s *Syncer) writePost(p *ghost.Post) (string, error) {
	if !mobiledoc.HasOnlyMarkdownCard(p.Mobiledoc) {
		return "", fmt.Errorf("post %s: %w", p.ID, apperrors.ErrUnsupportedDocument)
	}

	md, err := mobiledoc.ToMarkdown(p.Mobiledoc)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", p.ID, err)
	}

	blog := s.auth.BlogURL()

	rec, err := s.records.PostRecord(blog, p.ID)
	if err != nil {
		return "", fmt.Errorf("reading record for post %s: %w", p.ID, err)
	}

	name := fileName(p.Slug)

	if rec != nil && rec.Path != "" {
		name = rec.Path

		if s.locallyModified(name, rec) {
			return "", fmt.Errorf("%s: %w", name, ErrLocalChanges)
		}
	}

	return name, s.store(name, p, md)
}

// store writes the file for p with body md and records it.
func (s *Syncer) store(name string, p *ghost.Post, md string) error {
	data, err := RenderDocument(FrontmatterFor(p), md)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path(name), data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	rec := models.PostRecord{
		PostID:       p.ID,
		Path:         name,
		UpdatedAt:    p.UpdatedAt,
		BaseMarkdown: md,
		Hash:         contentHash(data),
	}

	if err := s.records.SetPostRecord(s.auth.BlogURL(), rec); err != nil {
		return fmt.Errorf("recording %s: %w", name, err)
	}

	return nil
}

func (s *Syncer) locallyModified(name string, rec *models.PostRecord) bool {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return false
	}

	return contentHash(data) != rec.Hash
}

// PushResult describes the outcome of Push.
type PushResult struct {
	PostID    string `json:"post_id"`
	Path      string `json:"path"`
	Created   bool   `json:"created"`
	Merged    bool   `json:"merged"`
	Unchanged bool   `json:"unchanged"`
}

// Push uploads a local file. A file without an id creates a new draft.
// If the remote post changed since the file was last written, the local
// edits are merged onto the remote text; edits that cannot be merged
// cleanly fail with ErrConflict and nothing is written.
func (s *Syncer) Push(ctx context.Context, name string) (*PushResult, error) {
	name, err := rel(s.dir, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	fm, body, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if fm.ID == "" {
		return s.create(ctx, name, fm, body)
	}

	remote, err := s.getPost(ctx, fm.ID)
	if err != nil {
		return nil, err
	}

	if !mobiledoc.HasOnlyMarkdownCard(remote.Mobiledoc) {
		return nil, fmt.Errorf("%s: %w", name, apperrors.ErrUnsupportedDocument)
	}

	remoteMD, err := mobiledoc.ToMarkdown(remote.Mobiledoc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	rec, err := s.records.PostRecord(s.auth.BlogURL(), fm.ID)
	if err != nil {
		return nil, fmt.Errorf("reading record for %s: %w", name, err)
	}

	result := &PushResult{PostID: fm.ID, Path: name}
	merged := body

	if remoteChanged(rec, fm, remote, remoteMD, body) {
		if rec == nil {
			return nil, fmt.Errorf("%s: no merge base for remote changes: %w", name, apperrors.ErrConflict)
		}

		var ok bool

		merged, ok = merge3(rec.BaseMarkdown, body, remoteMD)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, apperrors.ErrConflict)
		}

		result.Merged = true

		s.logger.Info("merged remote changes", slog.String("path", name), slog.String("id", fm.ID))
	}

	if merged == remoteMD && !fm.differs(remote) {
		result.Unchanged = true
		return result, s.store(name, remote, remoteMD)
	}

	doc, err := mobiledoc.InsertMarkdown(merged, remote.Mobiledoc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	upd := *remote
	fm.Apply(&upd)
	upd.Mobiledoc = doc
	upd.HTML = ""

	var updated *ghost.Post

	err = s.auth.Do(ctx, func(ctx context.Context, authHeader string) error {
		var err error
		updated, err = s.api.UpdatePost(ctx, authHeader, fm.ID, &upd)

		return err
	})
	if err != nil {
		if ghost.StatusCode(err) == 409 {
			return nil, fmt.Errorf("%s: %w: %w", name, apperrors.ErrConflict, err)
		}

		return nil, err
	}

	if err := s.store(name, updated, merged); err != nil {
		return nil, err
	}

	s.logger.Info("pushed post", slog.String("path", name), slog.String("id", fm.ID))

	return result, nil
}

func (s *Syncer) create(ctx context.Context, name string, fm Frontmatter, body string) (*PushResult, error) {
	if fm.Title == "" {
		fm.Title = strings.TrimSuffix(filepath.Base(name), ext)
	}

	if fm.Status == "" {
		fm.Status = "draft"
	}

	p := &ghost.Post{Mobiledoc: mobiledoc.FromMarkdown(body)}
	fm.Apply(p)

	created, err := s.createPost(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.store(name, created, body); err != nil {
		return nil, err
	}

	s.logger.Info("created post", slog.String("path", name), slog.String("id", created.ID))

	return &PushResult{PostID: created.ID, Path: name, Created: true}, nil
}

// Diff returns the changes pushing name would make to the remote
// markdown, as a textual patch. An empty string means no changes.
func (s *Syncer) Diff(ctx context.Context, name string) (string, error) {
	name, err := rel(s.dir, name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	fm, body, err := ParseDocument(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	remoteMD := ""

	if fm.ID != "" {
		_, remoteMD, err = s.ReadMarkdown(ctx, fm.ID)
		if err != nil {
			return "", err
		}
	}

	dmp := diffmatchpatch.New()

	return dmp.PatchToText(dmp.PatchMake(remoteMD, body)), nil
}

// remoteChanged reports whether the remote body moved on since the
// local file was written.
func remoteChanged(rec *models.PostRecord, fm Frontmatter, remote *ghost.Post, remoteMD, local string) bool {
	if rec != nil {
		return !remote.UpdatedAt.Equal(rec.UpdatedAt) && remoteMD != rec.BaseMarkdown
	}

	return remote.UpdatedAt.After(fm.UpdatedAt) && remoteMD != local
}

// merge3 applies the edits from base to local onto remote. It reports
// false if any edit could not be placed.
func merge3(base, local, remote string) (string, bool) {
	if local == base {
		return remote, true
	}

	if remote == base || remote == local {
		return local, true
	}

	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(base, local, true)
	if len(diffs) > diffCleanupThreshold {
		diffs = dmp.DiffCleanupSemantic(diffs)
		diffs = dmp.DiffCleanupEfficiency(diffs)
	}

	patches := dmp.PatchMake(base, diffs)

	merged, applied := dmp.PatchApply(patches, remote)
	for _, ok := range applied {
		if !ok {
			return "", false
		}
	}

	return merged, true
}

func (s *Syncer) path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

func reason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedDocument):
		return apperrors.ErrUnsupportedDocument.Error()
	case errors.Is(err, ErrLocalChanges):
		return ErrLocalChanges.Error()
	default:
		return err.Error()
	}
}
