package overlay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
)

// Trigger is the character that turns a line into a help request.
const Trigger = '?'

// DefaultDismissAfter is how long an auto-dismiss overlay stays up.
const DefaultDismissAfter = 5 * time.Second

// Mode selects how an overlay is shown.
type Mode int

const (
	// ModeAutoDismiss draws over the current screen and clears it after a
	// delay without blocking.
	ModeAutoDismiss Mode = iota
	// ModeInteractive clears the screen and waits for a keypress.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "auto-dismiss"
}

// ParseMode parses "interactive" or "auto-dismiss".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto", "auto-dismiss":
		return ModeAutoDismiss, nil
	case "interactive":
		return ModeInteractive, nil
	}
	return 0, fmt.Errorf("unknown overlay mode %q", s)
}

// Acknowledger blocks until the user dismisses an interactive overlay.
type Acknowledger interface {
	Acknowledge(prompt string) error
}

// Dispatch tells the shell what to do with an input line.
type Dispatch struct {
	HandledAsHelp bool
	// Command is the line to execute; empty when the line was a help
	// request.
	Command string
}

type timer interface {
	Stop() bool
}

// Renderer draws overlays for one session. At most one auto-dismiss timer is
// pending; drawing a new overlay cancels it.
type Renderer struct {
	mu        sync.Mutex
	out       io.Writer
	term      *termenv.Output
	style     lipgloss.Style
	heading   lipgloss.Style
	mode      Mode
	delay     time.Duration
	ack       Acknowledger
	ctx       *session.Context
	hist      *queryhistory.Store
	logger    *slog.Logger
	afterFunc func(time.Duration, func()) timer

	pending timer
	gen     uint64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMode sets the render mode.
func WithMode(m Mode) Option { return func(r *Renderer) { r.mode = m } }

// WithDismissAfter sets the auto-dismiss delay.
func WithDismissAfter(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.delay = d
		}
	}
}

// WithAcknowledger replaces the default keypress wait.
func WithAcknowledger(a Acknowledger) Option { return func(r *Renderer) { r.ack = a } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Renderer) { r.logger = l } }

// New creates a Renderer writing to out.
func New(out io.Writer, ctx *session.Context, hist *queryhistory.Store, opts ...Option) *Renderer {
	lr := lipgloss.NewRenderer(out)
	r := &Renderer{
		out:  out,
		term: termenv.NewOutput(out),
		style: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1),
		heading: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		mode:    ModeAutoDismiss,
		delay:   DefaultDismissAfter,
		ack:     &keypress{in: os.Stdin, out: out},
		ctx:     ctx,
		hist:    hist,
		logger:  slog.Default(),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, o := range opts {
		o(r)
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			r.style = r.style.Width(w - 2)
		}
	}
	return r
}

// Mode returns the configured render mode.
func (r *Renderer) Mode() Mode { return r.mode }

// ProcessLine decides whether raw is a help request. Help requests are
// rendered and never executed. Any other line cancels a pending dismiss so
// the command's output is not cleared.
func (r *Renderer) ProcessLine(raw string) Dispatch {
	if !strings.ContainsRune(raw, Trigger) {
		r.Close()
		return Dispatch{Command: raw}
	}
	partial := strings.TrimSpace(strings.ReplaceAll(raw, string(Trigger), ""))
	r.Render(partial)
	return Dispatch{HandledAsHelp: true}
}

// Render shows the overlay for partial in the configured mode and returns
// the model that was drawn.
func (r *Renderer) Render(partial string) Model {
	m := Build(analyzer.Parse(partial), r.ctx, r.hist)
	panel := r.Panel(m)

	r.mu.Lock()
	r.cancelLocked()
	if r.mode == ModeInteractive {
		r.term.ClearScreen()
		fmt.Fprintf(r.out, "%s\nCurrent input: %s\n", panel, partial)
		r.mu.Unlock()
		if err := r.ack.Acknowledge("Press Enter to continue..."); err != nil {
			r.logger.Debug("overlay acknowledge failed", "err", err)
		}
		return m
	}

	fmt.Fprintf(r.out, "%s\nCurrent input: %s\n", panel, partial)
	r.gen++
	gen := r.gen
	r.pending = r.afterFunc(r.delay, func() { r.dismiss(gen, partial) })
	r.mu.Unlock()
	return m
}

// Inline prints the overlay for partial below the prompt without clearing
// the screen or scheduling a dismiss.
func (r *Renderer) Inline(w io.Writer, partial string) Model {
	m := Build(analyzer.Parse(partial), r.ctx, r.hist)
	panel := r.Panel(m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	io.WriteString(w, "\n"+panel+"\n")
	return m
}

// Close cancels any pending dismiss.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

func (r *Renderer) cancelLocked() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.gen++
}

func (r *Renderer) dismiss(gen uint64, partial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.pending = nil
	r.term.ClearScreen()
	fmt.Fprintf(r.out, "Input: %s\n", partial)
}

// Panel formats m as a bordered box.
func (r *Renderer) Panel(m Model) string {
	var sb strings.Builder
	sb.WriteString(r.heading.Render(m.Title))
	sb.WriteString("\n")
	if m.Text != "" {
		sb.WriteString("\n" + m.Text + "\n")
	}
	if m.RecentUsage != "" {
		sb.WriteString("\n" + m.RecentUsage + "\n")
	}
	writeSection(&sb, "Frequently Used Commands:", "  ", m.Frequent)
	writeSection(&sb, "Useful Options:", "  ", m.Options)
	writeSection(&sb, "Tips & Common Issues:", "  • ", m.Tips)
	writeSection(&sb, "Examples:", "  ", m.Examples)
	writeSection(&sb, "Suggestions:", "  • ", m.Suggestions)
	return r.style.Render(strings.TrimRight(sb.String(), "\n"))
}

func writeSection(sb *strings.Builder, title, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n" + title + "\n")
	for _, item := range items {
		sb.WriteString(bullet + item + "\n")
	}
}

// keypress waits for a single key on a terminal, or a line otherwise.
type keypress struct {
	in  io.Reader
	out io.Writer
}

func (k *keypress) Acknowledge(prompt string) error {
	fmt.Fprintf(k.out, "\n%s", prompt)
	defer fmt.Fprintln(k.out)
	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(fd, state)
		var b [1]byte
		_, err = f.Read(b[:])
		return err
	}
	_, err := bufio.NewReader(k.in).ReadString('\n')
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
