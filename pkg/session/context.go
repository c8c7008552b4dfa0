// Package session tracks what the user has done in a shell session and turns
// it into suggestions, command analysis and error help.
//
// A Context is created once per shell and passed to every component that
// needs it. There is no package-level instance.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/catalog"
)

// DefaultHistorySize is the number of command lines kept per session.
const DefaultHistorySize = 20

// ResultSet is the result of the last search. Only its size matters here.
type ResultSet interface {
	Len() int
}

// Current describes the most recent command and what it produced.
type Current struct {
	Command    string
	Host       string
	BaseDN     string
	Filter     string
	Attributes []string
	Results    ResultSet
	Operation  any
	LastError  string
}

// State is the connection state of the session.
type State struct {
	Connected     bool
	Authenticated bool
	TLS           bool
	Server        any
	Connection    any
}

// ErrorRecord is one failed command.
type ErrorRecord struct {
	Command string
	Message string
	Time    time.Time
}

// Context is the session-scoped model of the shell. All methods are safe for
// concurrent use; in practice the shell loop is the only writer and the
// metrics collector the only other reader.
type Context struct {
	mu        sync.RWMutex
	id        string
	now       func() time.Time
	history   *History
	current   Current
	state     State
	frequency map[string]int
	errors    []ErrorRecord
}

// Option configures a Context.
type Option func(*Context)

// WithHistorySize sets the command history bound.
func WithHistorySize(n int) Option {
	return func(c *Context) { c.history = NewHistory(n) }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithID sets the session identifier instead of generating one.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// New creates an empty session.
func New(opts ...Option) *Context {
	c := &Context{
		id:        uuid.NewString(),
		now:       time.Now,
		history:   NewHistory(DefaultHistorySize),
		frequency: make(map[string]int),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ID returns the session identifier.
func (c *Context) ID() string { return c.id }

// AddCommand records line in the history, counts its leading token and,
// for directory commands, updates the current host, base DN and filter from
// the positional arguments. Shell builtins leave the current command alone
// so that suggest and help still describe the last directory operation.
func (c *Context) AddCommand(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history.Push(HistoryEntry{Line: line, Timestamp: c.now()})

	words := analyzer.Words(line)
	if len(words) == 0 {
		return
	}
	cmd := words[0]
	c.frequency[cmd]++

	if e, ok := catalog.Lookup(cmd); !ok || e.Builtin {
		return
	}
	c.current.Command = cmd
	for i := 1; i < len(words); i++ {
		switch analyzer.SlotFor(cmd, i) {
		case analyzer.SlotHost:
			c.current.Host = words[i]
		case analyzer.SlotBaseDN:
			c.current.BaseDN = words[i]
		case analyzer.SlotFilter:
			if !isOption(words[i]) {
				c.current.Filter = words[i]
			}
		}
	}
	if cmd == "search" {
		c.current.Attributes = attributeArgs(words[1:])
	}
}

// SetBaseDN sets the current base DN directly.
func (c *Context) SetBaseDN(dn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.BaseDN = dn
}

// AddError appends a timestamped error record.
func (c *Context) AddError(command, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, ErrorRecord{Command: command, Message: message, Time: c.now()})
	c.current.LastError = message
}

// StateOption changes one field of the session state.
type StateOption func(*State)

func WithConnected(v bool) StateOption     { return func(s *State) { s.Connected = v } }
func WithAuthenticated(v bool) StateOption { return func(s *State) { s.Authenticated = v } }
func WithTLS(v bool) StateOption           { return func(s *State) { s.TLS = v } }
func WithServer(v any) StateOption         { return func(s *State) { s.Server = v } }
func WithConnection(v any) StateOption     { return func(s *State) { s.Connection = v } }

// UpdateState applies only the given options; other fields keep their values.
func (c *Context) UpdateState(opts ...StateOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range opts {
		o(&c.state)
	}
}

// UpdateSearchResults stores the result of the last search.
func (c *Context) UpdateSearchResults(rs ResultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Results = rs
}

// UpdateOperationResult stores the result of the last non-search operation.
func (c *Context) UpdateOperationResult(result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Operation = result
}

// History returns the recorded lines, oldest first.
func (c *Context) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Lines()
}

// HistoryEntries returns the recorded lines with their timestamps, oldest
// first.
func (c *Context) HistoryEntries() []HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Entries()
}

// HistoryLen returns the number of recorded lines.
func (c *Context) HistoryLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Len()
}

// Errors returns a copy of the error log, oldest first.
func (c *Context) Errors() []ErrorRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ErrorRecord(nil), c.errors...)
}

// Current returns a copy of the current command record.
func (c *Context) Current() Current {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur := c.current
	cur.Attributes = append([]string(nil), c.current.Attributes...)
	return cur
}

// State returns the session state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Frequency returns how many recorded lines started with name.
func (c *Context) Frequency(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frequency[name]
}

// Frequencies returns a copy of all usage counters.
func (c *Context) Frequencies() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := make(map[string]int, len(c.frequency))
	for k, v := range c.frequency {
		m[k] = v
	}
	return m
}

// FrequentCommands returns up to n catalog commands that have been used,
// most used first. Equal counts keep catalog order.
func (c *Context) FrequentCommands(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for _, name := range catalog.Names() {
		if c.frequency[name] > 0 {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return c.frequency[names[i]] > c.frequency[names[j]]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func isOption(s string) bool {
	return len(s) > 1 && s[0] == '-'
}

// attributeArgs collects the values of -a options.
func attributeArgs(args []string) []string {
	var attrs []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-a" && i+1 < len(args) {
			attrs = append(attrs, args[i+1])
			i++
		}
	}
	return attrs
}
