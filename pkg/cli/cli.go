// Package cli implements the interactive ldapsh shell.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/completion"
	"github.com/psaab/ldapsh/pkg/directory"
	"github.com/psaab/ldapsh/pkg/overlay"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/render"
	"github.com/psaab/ldapsh/pkg/session"
)

// Defaults are connection settings used when a command does not give them.
type Defaults struct {
	Host    string
	Port    int
	BindDN  string
	TLS     bool
	BaseDN  string
	Timeout time.Duration
}

// Options configures a Shell.
type Options struct {
	Session  *session.Context
	History  *queryhistory.Store
	Client   directory.Client
	Renderer render.Renderer
	Defaults Defaults

	OverlayMode  overlay.Mode
	DismissAfter time.Duration
	// InlineHelp shows the overlay as soon as ? is typed at the end of
	// the line.
	InlineHelp bool

	// HistoryFile is the readline line history; empty disables it.
	HistoryFile string

	// ReadPassword prompts for a bind password. Nil uses readline.
	ReadPassword func(prompt string) ([]byte, error)

	Logger *slog.Logger
	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
}

// Shell is the interactive command loop.
type Shell struct {
	rl        *readline.Instance
	ctx       *session.Context
	hist      *queryhistory.Store
	client    directory.Client
	renderer  render.Renderer
	overlay   *overlay.Renderer
	completer *completion.Provider
	defaults  Defaults
	inline    bool
	histFile  string
	password  func(prompt string) ([]byte, error)
	logger    *slog.Logger
	in        io.ReadCloser
	out       io.Writer
	errOut    io.Writer
}

// New creates a Shell. Session, History and Client are required.
func New(opts Options) *Shell {
	s := &Shell{
		ctx:       opts.Session,
		hist:      opts.History,
		client:    opts.Client,
		renderer:  opts.Renderer,
		completer: completion.New(opts.History),
		defaults:  opts.Defaults,
		inline:    opts.InlineHelp,
		histFile:  opts.HistoryFile,
		password:  opts.ReadPassword,
		logger:    opts.Logger,
		in:        opts.Stdin,
		out:       opts.Stdout,
		errOut:    opts.Stderr,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.errOut == nil {
		s.errOut = os.Stderr
	}
	if s.renderer == nil {
		s.renderer = render.NewConsole(s.out)
	}
	if s.defaults.Timeout <= 0 {
		s.defaults.Timeout = directory.DefaultTimeout
	}
	s.overlay = overlay.New(s.out, s.ctx, s.hist,
		overlay.WithMode(opts.OverlayMode),
		overlay.WithDismissAfter(opts.DismissAfter),
		overlay.WithAcknowledger(s),
		overlay.WithLogger(s.logger),
	)
	if s.defaults.BaseDN != "" {
		s.ctx.SetBaseDN(s.defaults.BaseDN)
	}
	return s
}

// Run starts the interactive shell loop. It returns when the user exits,
// input ends or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	cfg := &readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.histFile,
		AutoComplete:    s.completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           s.in,
		Stdout:          s.out,
		Stderr:          s.errOut,
	}
	if s.inline {
		cfg.Listener = readline.FuncListener(s.helpKey)
	}
	var err error
	s.rl, err = readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer s.rl.Close()
	defer s.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.rl.Close()
		case <-done:
		}
	}()

	fmt.Fprintln(s.out, "ldapsh - interactive LDAP shell")
	fmt.Fprintln(s.out, "Type 'help' for commands, or end a line with '?' for context help")
	fmt.Fprintln(s.out)

	if s.defaults.Host != "" {
		if err := s.connect(ctx, directory.Target{
			Host:   s.defaults.Host,
			Port:   s.defaults.Port,
			TLS:    s.defaults.TLS,
			BindDN: s.defaults.BindDN,
		}); err != nil {
			s.report("connect "+s.defaults.Host, err)
		}
	}

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF || ctx.Err() != nil {
				break
			}
			return err
		}

		if err := s.Execute(ctx, line); err != nil {
			if err == errExit {
				return nil
			}
			return err
		}
		s.rl.SetPrompt(s.prompt())
	}
	return nil
}

var errExit = fmt.Errorf("exit")

// Close cancels any pending overlay dismiss and closes the directory
// connection.
func (s *Shell) Close() {
	s.overlay.Close()
	s.client.Close()
}

// Execute handles one input line. Help requests are rendered and not
// recorded; every other non-empty line is recorded and dispatched. Command
// failures are reported and recorded rather than returned; the only error
// returned ends the shell.
func (s *Shell) Execute(ctx context.Context, raw string) error {
	d := s.overlay.ProcessLine(raw)
	if d.HandledAsHelp {
		return nil
	}
	line := strings.TrimSpace(d.Command)
	if line == "" {
		return nil
	}

	s.ctx.AddCommand(line)
	s.logger.Debug("command", "line", line)

	if err := s.dispatch(ctx, line); err != nil {
		if err == errExit {
			return errExit
		}
		s.report(line, err)
	}
	return nil
}

func (s *Shell) dispatch(ctx context.Context, line string) error {
	a, err := s.ctx.AnalyzeCommand(line)
	if err != nil {
		return err
	}

	switch a.Command {
	case "exit", "quit":
		return errExit
	case "help":
		return s.handleHelp(a.Arguments)
	case "suggest":
		s.showSuggestions()
		return nil
	case "history":
		return s.handleHistory(a.Arguments)
	case "base":
		return s.handleBase(a.Arguments)
	case "validate":
		return s.handleValidate(line)
	case "connect":
		return s.handleConnect(ctx, a.Arguments)
	default:
		return s.handleDirectory(ctx, a.Command, a.Arguments)
	}
}

// report prints a failed command the way the shell prints every error and
// records it in the session.
func (s *Shell) report(line string, err error) {
	msg := err.Error()
	s.ctx.AddError(line, msg)
	s.logger.Info("command failed", "line", line, "err", msg)

	fmt.Fprintf(s.errOut, "error: %s\n", msg)
	var ce *session.CommandError
	if errors.As(err, &ce) {
		if len(ce.Suggested) > 1 {
			fmt.Fprintf(s.errOut, "Did you mean: %s\n", strings.Join(ce.Suggested, ", "))
		}
		if ce.Syntax != "" {
			fmt.Fprintf(s.errOut, "Syntax: %s\n", ce.Syntax)
		}
		return
	}
	if h := s.ctx.HelpForError(line, msg); h.Suggestion != "" {
		fmt.Fprintf(s.errOut, "hint: %s\n", h.Suggestion)
	}
}

// helpKey is the readline listener for inline help. It fires on '?' typed
// at the end of the line and removes the '?' from the buffer.
func (s *Shell) helpKey(line []rune, pos int, key rune) ([]rune, int, bool) {
	if key != overlay.Trigger || pos < 1 || pos != len(line) {
		return line, pos, false
	}
	clean := append([]rune(nil), line[:pos-1]...)
	s.overlay.Inline(s.rl.Stdout(), strings.TrimSpace(string(clean)))
	s.rl.Refresh()
	return clean, pos - 1, true
}

// Acknowledge implements overlay.Acknowledger by reading a line through
// readline, so the keypress does not race readline's own terminal reader.
func (s *Shell) Acknowledge(prompt string) error {
	if s.rl == nil {
		return nil
	}
	s.rl.SetPrompt(prompt)
	defer s.rl.SetPrompt(s.prompt())
	_, err := s.rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return nil
	}
	return err
}

func (s *Shell) readPassword(prompt string) ([]byte, error) {
	if s.password != nil {
		return s.password(prompt)
	}
	if s.rl == nil {
		return nil, fmt.Errorf("no terminal for password prompt")
	}
	return s.rl.ReadPassword(prompt)
}

func (s *Shell) prompt() string {
	if s.client.Connected() {
		return fmt.Sprintf("ldapsh %s> ", s.client.Target().Host)
	}
	return "ldapsh> "
}

func (s *Shell) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.defaults.Timeout)
}

// rest returns the raw text after the first word of line, quotes intact.
func rest(line string) string {
	toks := analyzer.Tokenize(line)
	if len(toks) < 2 {
		return ""
	}
	return line[toks[1].Start:]
}
