package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/alexjbarnes/ghost-sync/internal/auth"
	"github.com/alexjbarnes/ghost-sync/internal/config"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/models"
	"github.com/alexjbarnes/ghost-sync/internal/state"
)

var errNoInput = errors.New("no input available")

// terminalStore asks the user for credentials and keeps the outcome in
// the state database. Credentials from the environment are tried first,
// once; every later attempt prompts.
type terminalStore struct {
	st      *state.State
	cfg     *config.Config
	in      *bufio.Reader
	rawIn   io.Reader
	out     io.Writer
	mu      sync.Mutex
	usedEnv bool
}

func newTerminalStore(st *state.State, cfg *config.Config, in io.Reader, out io.Writer) *terminalStore {
	return &terminalStore{
		st:    st,
		cfg:   cfg,
		in:    bufio.NewReader(in),
		rawIn: in,
		out:   out,
	}
}

// takeEnv reports whether the environment credentials should be used for
// this attempt.
func (s *terminalStore) takeEnv(available bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !available || s.usedEnv {
		return false
	}

	s.usedEnv = true

	return true
}

func (s *terminalStore) GhostAuthCode(ctx context.Context, params models.GhostAuthParams) (string, error) {
	if s.takeEnv(s.cfg.AuthCode != "") {
		return s.cfg.AuthCode, nil
	}

	fmt.Fprintf(s.out, "Open this URL in a browser and sign in:\n\n  %s\n\n", params.AuthorizeURL())

	code, err := s.readLine(ctx, "Authorization code: ")
	if err != nil {
		return "", err
	}

	return code, nil
}

func (s *terminalStore) EmailAndPassword(ctx context.Context, params models.PasswordAuthParams) (models.EmailPassword, error) {
	if s.takeEnv(s.cfg.HasPasswordCredentials()) {
		return models.EmailPassword{Email: s.cfg.Email, Password: s.cfg.Password}, nil
	}

	fmt.Fprintf(s.out, "Sign in to %s\n", params.BlogURL)

	email, err := s.readLine(ctx, "Email: ")
	if err != nil {
		return models.EmailPassword{}, err
	}

	password, err := s.readPassword(ctx, "Password: ")
	if err != nil {
		return models.EmailPassword{}, err
	}

	return models.EmailPassword{Email: email, Password: password}, nil
}

func (s *terminalStore) SaveCredentials(blogURL string, body ghost.AuthReqBody) error {
	return s.st.SaveCredentials(blogURL, body)
}

func (s *terminalStore) DeleteCredentials(blogURL string) error {
	return s.st.DeleteCredentials(blogURL)
}

func (s *terminalStore) SetLoggedIn(blogURL string, loggedIn bool) error {
	return s.st.SetLoggedIn(blogURL, loggedIn)
}

func (s *terminalStore) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(s.out, prompt)

	line, err := s.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}

		return "", fmt.Errorf("reading input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// readPassword disables echo when stdin is a terminal.
func (s *terminalStore) readPassword(ctx context.Context, prompt string) (string, error) {
	f, ok := s.rawIn.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.readLine(ctx, prompt)
	}

	fmt.Fprint(s.out, prompt)

	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(s.out)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(b), nil
}

// loginPrinter reports login progress on the terminal.
type loginPrinter struct {
	out    io.Writer
	errOut io.Writer
}

func (p loginPrinter) OnStartWaiting() {}

func (p loginPrinter) OnLoginDone() {
	fmt.Fprintln(p.out, "Logged in.")
}

func (p loginPrinter) OnNetworkError(errType auth.ErrorType, err error) {
	fmt.Fprintf(p.errOut, "Login failed (%s): %v\n", errType, err)
}

func (p loginPrinter) OnAPIError(message string, _ error) {
	fmt.Fprintf(p.errOut, "%s Try again.\n", message)
}
