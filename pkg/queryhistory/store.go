// Package queryhistory remembers recently used hosts, base DNs and search
// filters across shell sessions.
package queryhistory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Category names a list of remembered values.
type Category string

const (
	Host   Category = "host"
	BaseDN Category = "base_dn"
	Filter Category = "search_filter"
)

// Categories lists every category in display order.
var Categories = []Category{Host, BaseDN, Filter}

// DefaultSize is the per-category bound.
const DefaultSize = 20

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

var defaults = map[Category][]string{
	Host:   {"localhost", "ldap.example.com", "127.0.0.1"},
	BaseDN: {"dc=example,dc=com", "ou=people,dc=example,dc=com", "ou=groups,dc=example,dc=com"},
	Filter: {"(objectClass=*)", "(cn=*)", "(uid=*)", "(&(objectClass=person)(cn=*))", "(|(uid=*)(mail=*))"},
}

var examples = map[Category][]string{
	Host:   {"ldap.example.com", "localhost", "192.168.1.100"},
	BaseDN: {"dc=example,dc=com", "ou=people,dc=example,dc=com", "cn=admin,dc=example,dc=com"},
	Filter: {"(objectClass=*)", "(cn=user*)", "(&(objectClass=person)(mail=*@example.com))"},
}

// Defaults returns the completion fallback values for c.
func Defaults(c Category) []string {
	return append([]string(nil), defaults[c]...)
}

// Examples returns the canonical help examples for c.
func Examples(c Category) []string {
	return append([]string(nil), examples[c]...)
}

// Store keeps one bounded recency list per category. Lists are ordered
// oldest first. Every mutation is written back to the backing file; I/O
// failures are logged and the in-memory lists stay authoritative.
type Store struct {
	mu      sync.RWMutex
	path    string
	maxSize int
	lists   map[Category][]string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSize sets the per-category bound.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the store at path. A missing file starts an empty history and
// an unreadable or corrupt file is logged and ignored. An empty path keeps
// the history in memory only.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		maxSize: DefaultSize,
		lists:   make(map[Category][]string),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.load(); err != nil {
		s.logger.Warn("query history unavailable, starting empty", "path", path, "err", err)
		s.lists = make(map[Category][]string)
	}
	return s
}

// DefaultPath returns ~/.ldapsh/query_history.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ldapsh", "query_history.json")
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read query history: %w", err)
	}
	var raw map[Category][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse query history: %w", err)
	}
	for c, values := range raw {
		if !c.Valid() {
			continue
		}
		for _, v := range values {
			s.push(c, v)
		}
	}
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.lists, "", "  ")
	if err != nil {
		return fmt.Errorf("encode query history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write query history: %w", err)
	}
	return nil
}

// push appends v to c, moving an existing copy to the end and evicting the
// oldest values beyond maxSize.
func (s *Store) push(c Category, v string) {
	list := s.lists[c]
	for i, existing := range list {
		if existing == v {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	list = append(list, v)
	if len(list) > s.maxSize {
		list = list[len(list)-s.maxSize:]
	}
	s.lists[c] = list
}

// Add records v as the most recent value of c. Empty values and unknown
// categories are ignored.
func (s *Store) Add(c Category, v string) {
	if v == "" || !c.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(c, v)
	if err := s.save(); err != nil {
		s.logger.Warn("failed to save query history", "path", s.path, "err", err)
	}
}

// Get returns the values of c, oldest first.
func (s *Store) Get(c Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lists[c]...)
}

// Recent returns up to n values of c, most recent first. n <= 0 returns all.
func (s *Store) Recent(c Category, n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[c]
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make([]string, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out
}

// Len returns the number of values stored for c.
func (s *Store) Len(c Category) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists[c])
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }
