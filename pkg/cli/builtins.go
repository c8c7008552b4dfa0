package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/psaab/ldapsh/pkg/catalog"
	"github.com/psaab/ldapsh/pkg/directory"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
	"github.com/psaab/ldapsh/pkg/validate"
)

func (s *Shell) handleHelp(args []string) error {
	if len(args) == 0 {
		catalog.WriteHelp(s.out, "Available commands:", catalog.Candidates())
		fmt.Fprintln(s.out, "\nEnd any line with '?' for help on what to type next.")
		return nil
	}
	e, err := s.ctx.CommandHelp(args[0])
	if err != nil {
		return err
	}
	catalog.WriteEntry(s.out, e)
	return nil
}

func (s *Shell) showSuggestions() {
	set := s.ctx.Suggestions()
	if len(set.NextCommands)+len(set.Examples)+len(set.Tips)+len(set.Corrections) == 0 {
		fmt.Fprintln(s.out, "No suggestions yet. Try 'help'.")
		return
	}
	writeSection(s.out, "Next steps", set.NextCommands)
	writeSection(s.out, "Examples", set.Examples)
	writeSection(s.out, "Tips", set.Tips)
	writeSection(s.out, "Corrections", set.Corrections)
}

func writeSection(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  %s\n", item)
	}
}

func (s *Shell) handleHistory(args []string) error {
	if len(args) == 0 {
		for i, e := range s.ctx.HistoryEntries() {
			fmt.Fprintf(s.out, "%4d  %s  %s\n", i+1, e.Timestamp.Format(time.TimeOnly), e.Line)
		}
		return nil
	}
	c := queryhistory.Category(args[0])
	if !c.Valid() {
		return fmt.Errorf("unknown history category %q (want host, base_dn or search_filter)", args[0])
	}
	values := s.hist.Recent(c, 0)
	if len(values) == 0 {
		fmt.Fprintf(s.out, "No %s history\n", c)
		return nil
	}
	for i, v := range values {
		fmt.Fprintf(s.out, "%4d  %s\n", i+1, v)
	}
	return nil
}

func (s *Shell) handleBase(args []string) error {
	if len(args) == 0 {
		if dn := s.ctx.Current().BaseDN; dn != "" {
			fmt.Fprintln(s.out, dn)
		} else {
			fmt.Fprintln(s.out, "No base DN set")
		}
		return nil
	}
	s.ctx.SetBaseDN(args[0])
	s.hist.Add(queryhistory.BaseDN, args[0])
	fmt.Fprintf(s.out, "Base DN set to %s\n", args[0])
	return nil
}

func (s *Shell) handleValidate(line string) error {
	validate.Print(s.out, validate.New(s.ctx).Validate(rest(line)))
	return nil
}

func (s *Shell) handleConnect(ctx context.Context, args []string) error {
	fs := newFlagSet("connect")
	ssl := fs.Bool("ssl", false, "use LDAPS")
	if err := fs.Parse(args); err != nil {
		return wrapFlagError("connect", err)
	}
	pos := fs.Args()
	if len(pos) == 0 {
		return fmt.Errorf("connect: missing host")
	}
	t := directory.Target{Host: pos[0], TLS: *ssl}
	if len(pos) > 1 {
		port, err := strconv.Atoi(pos[1])
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("connect: invalid port %q", pos[1])
		}
		t.Port = port
	}
	if len(pos) > 2 {
		t.BindDN = pos[2]
	}
	if t.Port == 0 && t.Host == s.defaults.Host {
		t.Port = s.defaults.Port
	}
	return s.connect(ctx, t)
}

// connect opens a connection to t, prompting for a password when a bind DN
// is given, and records the new state.
func (s *Shell) connect(ctx context.Context, t directory.Target) error {
	if t.BindDN != "" && t.Password == "" {
		pw, err := s.readPassword(fmt.Sprintf("Password for %s: ", t.BindDN))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		t.Password = string(pw)
	}

	cctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.client.Connect(cctx, t); err != nil {
		s.ctx.UpdateState(session.WithConnected(false), session.WithAuthenticated(false))
		return fmt.Errorf("connect %s: %w", t.URL(), err)
	}

	s.ctx.UpdateState(
		session.WithConnected(true),
		session.WithAuthenticated(s.client.Bound()),
		session.WithTLS(t.TLS),
		session.WithServer(t.URL()),
		session.WithConnection(s.client),
	)
	s.hist.Add(queryhistory.Host, t.Host)
	s.logger.Info("connected", "url", t.URL(), "bind_dn", t.BindDN)

	fmt.Fprintf(s.out, "Connected to %s", t.URL())
	if t.BindDN != "" {
		fmt.Fprintf(s.out, " as %s", t.BindDN)
	}
	fmt.Fprintln(s.out)
	return nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(true)
	return fs
}

// wrapFlagError gives pflag errors the command name.
func wrapFlagError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", name, strings.TrimPrefix(err.Error(), "flag "))
}
