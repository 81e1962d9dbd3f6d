package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/alexjbarnes/ghost-sync/internal/auth"
	"github.com/alexjbarnes/ghost-sync/internal/config"
	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/mobiledoc"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(a *app) *cli.App {
	app := &cli.App{
		Name:      "ghost-sync",
		Usage:     "Edit Ghost blog posts as local markdown files",
		Version:   Version,
		Writer:    a.out,
		ErrWriter: a.errOut,
		Commands: []*cli.Command{
			loginCmd(a),
			logoutCmd(a),
			statusCmd(a),
			postsCmd(a),
			pullCmd(a),
			pushCmd(a),
			diffCmd(a),
			watchCmd(a),
			previewCmd(a),
		},
	}
	// Errors are returned to main, which prints them.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}

	return app
}

var blogFlag = &cli.StringFlag{
	Name:    "blog",
	Aliases: []string{"b"},
	Usage:   "Blog URL (defaults to GHOST_BLOG_URL, then the last blog logged in to)",
}

func loginCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Sign in to a Ghost blog",
		ArgsUsage: "[blog-url]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-attempts",
				Value: a.cfg.MaxLoginAttempts,
				Usage: "Stop after this many rejected credentials (0 retries forever)",
			},
		},
		Action: func(c *cli.Context) error {
			raw := c.Args().First()
			if raw == "" {
				raw = a.cfg.BlogURL
			}

			if raw == "" {
				return config.ErrNoBlogURL
			}

			st, err := a.openState()
			if err != nil {
				return err
			}
			defer st.Close()

			store := newTerminalStore(st, a.cfg, a.in, a.out)

			orch := auth.NewLoginOrchestrator(a.validator(), a.apiFactory, store, a.bus, a.logger,
				auth.WithMaxAttempts(c.Int("max-attempts")),
				auth.WithLocker(a.locks),
			)
			orch.Listen(loginPrinter{out: a.out, errOut: a.errOut})

			res, err := orch.Start(c.Context, raw)
			if err != nil {
				return err
			}

			if err := st.SaveToken(res.BlogURL, res.Token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}

			if err := st.SetCurrentBlog(res.BlogURL); err != nil {
				return fmt.Errorf("saving current blog: %w", err)
			}

			user, err := ghost.NewClient(res.BlogURL, a.httpClient).CurrentUser(c.Context, res.Token.AuthHeader())
			if err != nil {
				a.logger.Debug("fetching current user failed", slog.String("error", err.Error()))
				fmt.Fprintf(a.out, "Signed in to %s\n", res.BlogURL)

				return nil
			}

			fmt.Fprintf(a.out, "Signed in to %s as %s <%s>\n", res.BlogURL, user.Name, user.Email)

			return nil
		},
	}
}

func logoutCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke the session and forget stored credentials",
		Flags: []cli.Flag{blogFlag},
		Action: func(c *cli.Context) error {
			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.svc.Logout(c.Context); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Logged out of %s\n", s.blogURL)

			return nil
		},
	}
}

func statusCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show known blogs and whether each has a session",
		Action: func(c *cli.Context) error {
			st, err := a.openState()
			if err != nil {
				return err
			}

			blogs, err := st.Blogs()
			current := st.CurrentBlog()
			loggedIn := make(map[string]bool, len(blogs))

			for _, b := range blogs {
				loggedIn[b] = st.IsLoggedIn(b)
			}

			st.Close()

			if err != nil {
				return fmt.Errorf("listing blogs: %w", err)
			}

			if len(blogs) == 0 {
				fmt.Fprintln(a.out, "No blogs. Run `ghost-sync login <blog-url>`.")
				return nil
			}

			for _, b := range blogs {
				marker := " "
				if b == current {
					marker = "*"
				}

				status := "logged out"
				if loggedIn[b] {
					status = "logged in"
				}

				fmt.Fprintf(a.out, "%s %s (%s)\n", marker, b, status)
			}

			if current == "" || !loggedIn[current] {
				return nil
			}

			s, err := a.openSession(c.Context, current)
			if err != nil {
				return err
			}
			defer s.Close()

			var user *ghost.User

			err = s.svc.Do(c.Context, func(ctx context.Context, authHeader string) error {
				var err error
				user, err = s.client.CurrentUser(ctx, authHeader)

				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "\nSigned in to %s as %s <%s>\n", current, user.Name, user.Email)

			return nil
		},
	}
}

func postsCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "List remote posts",
		Flags: []cli.Flag{
			blogFlag,
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := a.syncer(s).List(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")

				return enc.Encode(list)
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tEDITABLE\tTITLE\tFILE")

			for _, p := range list {
				editable := "yes"
				if !p.Editable {
					editable = "no"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Status, editable, p.Title, p.Path)
			}

			return w.Flush()
		},
	}
}

func pullCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "pull",
		Usage:     "Write remote posts to the posts directory (all editable posts when no ids are given)",
		ArgsUsage: "[post-id...]",
		Flags:     []cli.Flag{blogFlag},
		Action: func(c *cli.Context) error {
			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			syncer := a.syncer(s)

			if c.NArg() == 0 {
				res, err := syncer.Export(c.Context)
				if err != nil {
					return err
				}

				for _, name := range res.Written {
					fmt.Fprintf(a.out, "wrote %s\n", name)
				}

				for _, sk := range res.Skipped {
					fmt.Fprintf(a.errOut, "skipped %s %q: %s\n", sk.ID, sk.Title, sk.Reason)
				}

				return nil
			}

			for _, id := range c.Args().Slice() {
				name, err := syncer.Pull(c.Context, id)
				if err != nil {
					return err
				}

				fmt.Fprintf(a.out, "wrote %s\n", name)
			}

			return nil
		},
	}
}

func pushCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Upload local files, merging with remote edits",
		ArgsUsage: "<file...>",
		Flags:     []cli.Flag{blogFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("push needs at least one file")
			}

			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			syncer := a.syncer(s)

			var failed []string

			for _, arg := range c.Args().Slice() {
				res, err := syncer.Push(c.Context, absPath(arg))
				if err != nil {
					if errors.Is(err, apperrors.ErrConflict) {
						fmt.Fprintf(a.errOut, "%s: conflicts with remote edits, pull and edit again\n", arg)
					} else {
						fmt.Fprintf(a.errOut, "%s: %v\n", arg, err)
					}

					failed = append(failed, arg)

					continue
				}

				fmt.Fprintln(a.out, describePush(res))
			}

			if len(failed) > 0 {
				return fmt.Errorf("push failed for %s", strings.Join(failed, ", "))
			}

			return nil
		},
	}
}

func describePush(res *posts.PushResult) string {
	switch {
	case res.Created:
		return fmt.Sprintf("created %s (post %s)", res.Path, res.PostID)
	case res.Unchanged:
		return fmt.Sprintf("unchanged %s", res.Path)
	case res.Merged:
		return fmt.Sprintf("merged %s with remote edits", res.Path)
	default:
		return fmt.Sprintf("updated %s", res.Path)
	}
}

func diffCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show what pushing a file would change",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{blogFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("diff needs exactly one file")
			}

			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			patch, err := a.syncer(s).Diff(c.Context, absPath(c.Args().First()))
			if err != nil {
				return err
			}

			if patch == "" {
				fmt.Fprintln(a.out, "no changes")
				return nil
			}

			fmt.Fprint(a.out, patch)

			return nil
		},
	}
}

func watchCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Push files in the posts directory as they are saved",
		Flags: []cli.Flag{
			blogFlag,
			&cli.DurationFlag{Name: "debounce", Value: posts.DefaultDebounce, Usage: "Quiet period before a changed file is pushed"},
		},
		Action: func(c *cli.Context) error {
			s, err := a.openSession(c.Context, c.String("blog"))
			if err != nil {
				return err
			}
			defer s.Close()

			w := posts.NewWatcher(a.syncer(s), a.logger,
				posts.WithDebounce(c.Duration("debounce")),
				posts.WithPushHook(func(res *posts.PushResult, err error) {
					if err != nil {
						fmt.Fprintf(a.errOut, "push failed: %v\n", err)
						return
					}

					fmt.Fprintln(a.out, describePush(res))
				}),
			)

			fmt.Fprintf(a.out, "Watching %s for %s. Press Ctrl+C to stop.\n", a.cfg.PostsDir, s.blogURL)

			err = w.Watch(c.Context)
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		},
	}
}

func previewCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Render a local file to HTML the way the blog will",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("preview needs exactly one file")
			}

			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}

			_, body, err := posts.ParseDocument(data)
			if err != nil {
				return err
			}

			html, err := mobiledoc.RenderHTML(body)
			if err != nil {
				return err
			}

			fmt.Fprint(a.out, html)

			return nil
		},
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}

	return abs
}
