package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/alexjbarnes/ghost-sync/internal/auth"
	"github.com/alexjbarnes/ghost-sync/internal/blogurl"
	"github.com/alexjbarnes/ghost-sync/internal/config"
	"github.com/alexjbarnes/ghost-sync/internal/events"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/logging"
	"github.com/alexjbarnes/ghost-sync/internal/mcpserver"
	"github.com/alexjbarnes/ghost-sync/internal/posts"
	"github.com/alexjbarnes/ghost-sync/internal/server"
	"github.com/alexjbarnes/ghost-sync/internal/state"
)

var Version = "dev"

func main() {
	// Handle hash-token subcommand before flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		hashToken()
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func hashToken() {
	fmt.Fprint(os.Stderr, "Enter token: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fmt.Fprintln(os.Stderr, "no input")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(scanner.Bytes(), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}

type flags struct {
	ListenAddr string
	TokenHash  string
}

func parseFlags() *flags {
	f := &flags{}

	flag.StringVar(&f.ListenAddr, "listen-addr", os.Getenv("MCP_LISTEN_ADDR"), "serve over HTTP on this address instead of stdio")
	flag.StringVar(&f.TokenHash, "token-hash", os.Getenv("MCP_TOKEN_HASH"), "bcrypt hash of the bearer token HTTP clients must send")
	flag.Parse()

	return f
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries the stdio transport, so logs go to stderr.
	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel).With(slog.String("component", "mcp"))
	slog.SetDefault(logger)

	if f.ListenAddr != "" && f.TokenHash == "" {
		return errors.New("MCP_TOKEN_HASH or --token-hash is required with --listen-addr")
	}

	st, err := state.LoadAt(cfg.StatePath, cfg.StatePassphrase)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer st.Close()

	blog, err := cfg.RequireBlogURL(st.CurrentBlog())
	if err != nil {
		return err
	}

	blog = blogurl.Normalize(blog)

	if !st.IsLoggedIn(blog) {
		return fmt.Errorf("%s: not logged in, run `ghost-sync login` first", blog)
	}

	token, err := st.Token(blog)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	bus := events.NewBus()
	events.LogSubscriber(bus, logger)

	client := ghost.NewClient(blog, ghost.NewHTTPClient(cfg.HTTPTimeout))
	svc := auth.NewService(blog, client, st, bus, logger, auth.WithToken(token))
	svc.Listen(tokenSaver{st: st, blogURL: blog, logger: logger})

	syncer := posts.NewSyncer(client, svc, st, cfg.PostsDir, logger,
		posts.WithConcurrency(cfg.ExportConcurrency))

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "ghost-sync-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, syncer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.ListenAddr == "" {
		logger.Info("serving on stdio", slog.String("blog", blog))

		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}

		return nil
	}

	return serveHTTP(ctx, mcpServer, f, logger)
}

func serveHTTP(ctx context.Context, mcpServer *mcp.Server, f *flags, logger *slog.Logger) error {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	srv := &http.Server{
		Addr: f.ListenAddr,
		Handler: server.NewMux(server.MuxConfig{
			MCPHandler: mcpHandler,
			TokenHash:  f.TokenHash,
			Logger:     logger,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("listen", f.ListenAddr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

type tokenSaver struct {
	st      *state.State
	blogURL string
	logger  *slog.Logger
}

func (s tokenSaver) OnNewAuthToken(t *ghost.AuthToken) {
	if err := s.st.SaveToken(s.blogURL, t); err != nil {
		s.logger.Warn("saving token", slog.String("error", err.Error()))
	}
}
