package overlay

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/catalog"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
)

func TestBuildNoCommand(t *testing.T) {
	ctx := session.New()
	m := Build(analyzer.Parse(""), ctx, nil)
	assert.Equal(t, "Available Commands", m.Title)
	assert.Equal(t, catalog.Names(), m.Suggestions)
	assert.Empty(t, m.Frequent)

	for _, line := range []string{"search a b", "search a b", "info a", "bogus"} {
		ctx.AddCommand(line)
	}
	m = Build(analyzer.Parse(""), ctx, nil)
	assert.Equal(t, []string{"search", "info"}, m.Frequent)
}

func TestBuildUnknownCommand(t *testing.T) {
	m := Build(analyzer.Parse("serch"), session.New(), nil)
	assert.Equal(t, "Unknown Command", m.Title)
	assert.Equal(t, "Command 'serch' not found. Did you mean 'search'?", m.Text)
	assert.Equal(t, "search", m.Suggestions[0])

	m = Build(analyzer.Parse("qqqqqq x"), session.New(), nil)
	assert.Equal(t, "Unknown Command", m.Title)
	assert.Empty(t, m.Suggestions)
}

func TestBuildCommandHelp(t *testing.T) {
	m := Build(analyzer.Parse("search"), session.New(), nil)
	assert.Equal(t, "Help for 'search'", m.Title)
	assert.Equal(t, "Syntax: search <host> <base_dn> [<filter>] [options]", m.Text)
	assert.Len(t, m.Options, 4)
	assert.Len(t, m.Tips, 3)

	m = Build(analyzer.Parse("delete"), session.New(), nil)
	assert.Empty(t, m.Options)

	// Position 4 of search has no slot, so command help is shown.
	m = Build(analyzer.Parse("search h b (cn=x) -a"), session.New(), nil)
	assert.Equal(t, "Help for 'search'", m.Title)
}

func TestBuildSlots(t *testing.T) {
	hist := queryhistory.Open("")
	for _, h := range []string{"h1", "h2", "h3", "h4", "localhost"} {
		hist.Add(queryhistory.Host, h)
	}
	ctx := session.New()

	m := Build(analyzer.Parse("search ld"), ctx, hist)
	assert.Equal(t, "LDAP Host", m.Title)
	// Three most recent first, then canonical examples without the
	// duplicate, capped.
	assert.Equal(t, []string{"localhost", "h4", "h3", "ldap.example.com", "192.168.1.100"}, m.Examples)
	assert.Equal(t, "You've recently used these hosts: localhost, h4, h3", m.RecentUsage)

	m = Build(analyzer.Parse("search h dc"), ctx, nil)
	assert.Equal(t, "Base DN", m.Title)
	assert.Equal(t, queryhistory.Examples(queryhistory.BaseDN), m.Examples)
	assert.Empty(t, m.RecentUsage)

	hist.Add(queryhistory.Filter, "(uid=me)")
	m = Build(analyzer.Parse("search h b (ob"), ctx, hist)
	assert.Equal(t, "LDAP Filter", m.Title)
	assert.Equal(t, "(uid=me)", m.Examples[0])
	assert.Len(t, m.Tips, 3)

	m = Build(analyzer.Parse("base ou"), ctx, hist)
	assert.Equal(t, "Base DN", m.Title)
}

func TestMergeCap(t *testing.T) {
	got := merge([]string{"a", "b", "c"}, []string{"c", "d", "e", "f", "g"})
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got)
}

type fakeTimer struct {
	stopped bool
	fn      func()
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (c *fakeClock) afterFunc(d time.Duration, fn func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *bytes.Buffer, *fakeClock) {
	t.Helper()
	var buf bytes.Buffer
	clk := &fakeClock{}
	r := New(&buf, session.New(), queryhistory.Open(""), opts...)
	r.afterFunc = clk.afterFunc
	return r, &buf, clk
}

func TestProcessLinePassThrough(t *testing.T) {
	r, buf, clk := newTestRenderer(t)
	d := r.ProcessLine("search h b (cn=x)")
	assert.False(t, d.HandledAsHelp)
	assert.Equal(t, "search h b (cn=x)", d.Command)
	assert.Empty(t, buf.String())
	assert.Empty(t, clk.timers)
}

func TestProcessLineHelp(t *testing.T) {
	for _, line := range []string{"search?", "search ?", "?", "search h?b"} {
		r, buf, _ := newTestRenderer(t)
		d := r.ProcessLine(line)
		assert.True(t, d.HandledAsHelp, line)
		assert.Empty(t, d.Command, line)
		assert.NotEmpty(t, buf.String(), line)
	}
}

func TestAutoDismiss(t *testing.T) {
	r, buf, clk := newTestRenderer(t, WithDismissAfter(2*time.Second))
	m := r.Render("search")
	assert.Equal(t, "Help for 'search'", m.Title)
	out := buf.String()
	assert.NotContains(t, out, "\x1b[2J", "auto-dismiss does not clear before drawing")
	assert.Contains(t, out, "Help for 'search'")
	assert.Contains(t, out, "Current input: search")

	require.Len(t, clk.timers, 1)
	assert.Equal(t, 2*time.Second, clk.delays[0])

	buf.Reset()
	clk.timers[0].fn()
	assert.Contains(t, buf.String(), "\x1b[2J")
	assert.Contains(t, buf.String(), "Input: search")
}

func TestNewOverlayCancelsPendingDismiss(t *testing.T) {
	r, buf, clk := newTestRenderer(t)
	r.Render("search")
	r.Render("info")
	require.Len(t, clk.timers, 2)
	assert.True(t, clk.timers[0].stopped)
	assert.False(t, clk.timers[1].stopped)

	// A stale callback that raced with Stop must not clear the new overlay.
	buf.Reset()
	clk.timers[0].fn()
	assert.Empty(t, buf.String())

	clk.timers[1].fn()
	assert.Contains(t, buf.String(), "Input: info")
}

func TestCloseCancelsPendingDismiss(t *testing.T) {
	r, buf, clk := newTestRenderer(t)
	r.Render("")
	r.Close()
	assert.True(t, clk.timers[0].stopped)
	buf.Reset()
	clk.timers[0].fn()
	assert.Empty(t, buf.String())
}

func TestCommandLineCancelsPendingDismiss(t *testing.T) {
	r, buf, clk := newTestRenderer(t)
	r.ProcessLine("search?")
	require.Len(t, clk.timers, 1)

	d := r.ProcessLine("info ldap.example.com")
	assert.False(t, d.HandledAsHelp)
	assert.True(t, clk.timers[0].stopped)

	buf.Reset()
	clk.timers[0].fn()
	assert.Empty(t, buf.String(), "a stale dismiss must not clear command output")
}

type countingAck struct{ n int }

func (a *countingAck) Acknowledge(string) error {
	a.n++
	return nil
}

func TestInteractiveMode(t *testing.T) {
	ack := &countingAck{}
	r, buf, clk := newTestRenderer(t, WithMode(ModeInteractive), WithAcknowledger(ack))
	d := r.ProcessLine("delete ?")
	assert.True(t, d.HandledAsHelp)
	assert.Equal(t, 1, ack.n)
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b[2J"))
	assert.Contains(t, buf.String(), "Help for 'delete'")
	assert.Empty(t, clk.timers)
}

func TestInteractiveKeypressFromReader(t *testing.T) {
	var out bytes.Buffer
	k := &keypress{in: strings.NewReader("\n"), out: &out}
	require.NoError(t, k.Acknowledge("Press Enter"))
	assert.Contains(t, out.String(), "Press Enter")

	k = &keypress{in: strings.NewReader(""), out: &out}
	assert.NoError(t, k.Acknowledge("Press Enter"))
}

func TestInline(t *testing.T) {
	r, _, clk := newTestRenderer(t)
	r.Render("search")
	var w bytes.Buffer
	m := r.Inline(&w, "search ")
	assert.Equal(t, "Help for 'search'", m.Title)
	assert.Contains(t, w.String(), "Syntax: search")
	assert.NotContains(t, w.String(), "\x1b[2J")
	assert.True(t, clk.timers[0].stopped)
	assert.Len(t, clk.timers, 1)
}

func TestPanelSections(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	out := r.Panel(Model{
		Title:       "T",
		Text:        "body",
		Frequent:    []string{"search"},
		Tips:        []string{"tip"},
		Suggestions: []string{"s"},
	})
	for _, want := range []string{"T", "body", "Frequently Used Commands:", "• tip", "Suggestions:"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Examples:")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("interactive")
	require.NoError(t, err)
	assert.Equal(t, ModeInteractive, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAutoDismiss, m)
	_, err = ParseMode("popup")
	assert.Error(t, err)
}
