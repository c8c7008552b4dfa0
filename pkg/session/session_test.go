package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psaab/ldapsh/pkg/catalog"
)

type results int

func (r results) Len() int { return int(r) }

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return New(WithID("test"), WithClock(func() time.Time { return ts }))
}

func TestHistoryBoundFIFO(t *testing.T) {
	c := newTestContext(t)
	for i := 0; i < 25; i++ {
		c.AddCommand(fmt.Sprintf("info host%d", i))
	}
	h := c.History()
	require.Len(t, h, DefaultHistorySize)
	assert.Equal(t, "info host5", h[0])
	assert.Equal(t, "info host24", h[len(h)-1])
	assert.Equal(t, 25, c.Frequency("info"))
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(2)
	h.Push(HistoryEntry{Line: "a"})
	h.Push(HistoryEntry{Line: "b"})
	h.Push(HistoryEntry{Line: "c"})
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{"b", "c"}, h.Lines())
	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Line)
	entries[0].Line = "x"
	assert.Equal(t, "b", h.Entries()[0].Line, "Entries returns a copy")
}

func TestHistoryEntriesTimestamp(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("info h")
	entries := c.HistoryEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "info h", entries[0].Line)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), entries[0].Timestamp)
}

func TestAddCommandBuiltinKeepsCurrent(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("search ldap.example.com 'dc=example,dc=com'")
	c.AddCommand("suggest")
	c.AddCommand("connect other.example.com")
	c.AddCommand("validate delete h dn")
	cur := c.Current()
	assert.Equal(t, "search", cur.Command)
	assert.Equal(t, "ldap.example.com", cur.Host)
	assert.Equal(t, "dc=example,dc=com", cur.BaseDN)
	assert.Equal(t, 1, c.Frequency("suggest"))
	assert.Len(t, c.History(), 4)
}

func TestAddCommandPositional(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("search ldap.example.com 'dc=example,dc=com' '(cn=admin)' -a cn -a mail")
	cur := c.Current()
	assert.Equal(t, "search", cur.Command)
	assert.Equal(t, "ldap.example.com", cur.Host)
	assert.Equal(t, "dc=example,dc=com", cur.BaseDN)
	assert.Equal(t, "(cn=admin)", cur.Filter)
	assert.Equal(t, []string{"cn", "mail"}, cur.Attributes)

	c.AddCommand("info other.example.com")
	cur = c.Current()
	assert.Equal(t, "info", cur.Command)
	assert.Equal(t, "other.example.com", cur.Host)
	assert.Equal(t, "dc=example,dc=com", cur.BaseDN, "info does not take a base DN")
}

func TestAddCommandUnknown(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("search h b")
	c.AddCommand("frobnicate x y z")
	cur := c.Current()
	assert.Equal(t, "search", cur.Command)
	assert.Equal(t, "h", cur.Host)
	assert.Equal(t, 1, c.Frequency("frobnicate"))
	assert.Len(t, c.History(), 2)
}

func TestAddCommandEmpty(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("   ")
	assert.Len(t, c.History(), 1)
	assert.Empty(t, c.Frequencies())
}

func TestAddError(t *testing.T) {
	c := newTestContext(t)
	c.AddError("delete h dn", "LDAP Result Code 66 \"Not Allowed On Non-Leaf\"")
	errs := c.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "delete h dn", errs[0].Command)
	assert.Equal(t, 2026, errs[0].Time.Year())
	assert.Equal(t, errs[0].Message, c.Current().LastError)
}

func TestUpdateStatePartial(t *testing.T) {
	c := newTestContext(t)
	c.UpdateState(WithConnected(true), WithServer("ldap://h:389"))
	c.UpdateState(WithAuthenticated(true))
	st := c.State()
	assert.True(t, st.Connected)
	assert.True(t, st.Authenticated)
	assert.False(t, st.TLS)
	assert.Equal(t, "ldap://h:389", st.Server)
}

func TestSuggestionsCatalogOnly(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("search h b")
	s := c.Suggestions()
	e, _ := catalog.Lookup("search")
	assert.Equal(t, e.NextSteps, s.NextCommands)
	assert.Equal(t, e.Examples, s.Examples)
	assert.Equal(t, e.CommonErrors, s.Tips)
	assert.Empty(t, s.Corrections)
}

func TestSuggestionsOrdering(t *testing.T) {
	c := newTestContext(t)
	c.AddCommand("search h b")
	c.UpdateSearchResults(results(3))
	c.UpdateState(WithConnected(true))

	s := c.Suggestions()
	e, _ := catalog.Lookup("search")
	want := append(append([]string{}, e.NextSteps...), ResultHints...)
	assert.Equal(t, want, s.NextCommands)

	n := len(s.Tips)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, AuthTip, s.Tips[n-2])
	assert.Equal(t, TLSTip, s.Tips[n-1])
	assert.Equal(t, e.CommonErrors, s.Tips[:n-2])

	// The catalog itself must be untouched.
	assert.Len(t, e.NextSteps, 3)
	assert.Len(t, e.CommonErrors, 3)
}

func TestSuggestionsEmptyResultsAndState(t *testing.T) {
	c := newTestContext(t)
	c.UpdateSearchResults(results(0))
	c.UpdateState(WithConnected(true), WithAuthenticated(true), WithTLS(true))
	s := c.Suggestions()
	assert.Empty(t, s.NextCommands)
	assert.Empty(t, s.Tips)

	c.UpdateState(WithConnected(false), WithAuthenticated(false), WithTLS(false))
	assert.Empty(t, c.Suggestions().Tips)
}

func TestSuggestionsCorrections(t *testing.T) {
	c := newTestContext(t)
	c.AddError("search h b", "LDAP Result Code 32 \"No Such Object\"")
	s := c.Suggestions()
	assert.Equal(t, []string{"The specified DN does not exist"}, s.Corrections)
}

func TestAnalyzeCommand(t *testing.T) {
	c := newTestContext(t)

	_, err := c.AnalyzeCommand("  ")
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Empty command", ce.Message)

	_, err = c.AnalyzeCommand("serch h b")
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Command 'serch' not found. Did you mean 'search'?", ce.Message)
	assert.Equal(t, "search", ce.Suggested[0])

	_, err = c.AnalyzeCommand("zzzzzz")
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Command 'zzzzzz' not found.", ce.Message)
	assert.Empty(t, ce.Suggested)

	_, err = c.AnalyzeCommand("search ldap.example.com")
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Not enough arguments for 'search'. Syntax: search <host> <base_dn> [<filter>] [options]", ce.Message)
	assert.Equal(t, "search <host> <base_dn> [<filter>] [options]", ce.Syntax)
	assert.NotEmpty(t, ce.Examples)

	a, err := c.AnalyzeCommand("rename h 'cn=a,dc=x' cn=b")
	require.NoError(t, err)
	assert.Equal(t, "rename", a.Command)
	assert.Equal(t, []string{"h", "cn=a,dc=x", "cn=b"}, a.Arguments)
}

func TestAnalyzeCommandMinArgsProperty(t *testing.T) {
	c := newTestContext(t)
	for _, name := range catalog.Names() {
		e, _ := catalog.Lookup(name)
		min := catalog.MinArgs(e)
		if min == 0 {
			continue
		}
		line := name
		for i := 0; i < min-1; i++ {
			line += " x"
		}
		_, err := c.AnalyzeCommand(line)
		var ce *CommandError
		require.True(t, errors.As(err, &ce), name)
		assert.Equal(t, e.Syntax, ce.Syntax, name)
	}
}

func TestCommandHelp(t *testing.T) {
	c := newTestContext(t)
	e, err := c.CommandHelp("modify")
	require.NoError(t, err)
	assert.Equal(t, "modify", e.Name)

	_, err = c.CommandHelp("modfy")
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"modify"}, ce.Suggested)
}

func TestHelpForError(t *testing.T) {
	c := newTestContext(t)
	h := c.HelpForError("add h 'cn=x,dc=y'", "LDAP Result Code 68 \"Entry Already Exists\"")
	assert.Equal(t, "Entry already exists", h.Suggestion)
	assert.Equal(t, "add <host> <dn> [options]", h.Syntax)

	h = c.HelpForError("", "boom")
	assert.Empty(t, h.Suggestion)
	assert.Empty(t, h.Syntax)
}

func TestFrequentCommands(t *testing.T) {
	c := newTestContext(t)
	for _, line := range []string{
		"info a", "add a b", "add a b", "search a b", "search a b",
		"delete a b", "modify a b", "rename a b c", "schema a", "bogus", "bogus", "bogus",
	} {
		c.AddCommand(line)
	}
	// search and add tie at 2: search comes first in catalog order.
	got := c.FrequentCommands(5)
	assert.Equal(t, []string{"search", "add", "info", "schema", "modify"}, got)
}
