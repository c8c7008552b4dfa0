// Package directory is the shell's connection to an LDAP server.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// ErrNotConnected is returned by operations issued before Connect.
var ErrNotConnected = errors.New("not connected")

// Default ports.
const (
	PortLDAP  = 389
	PortLDAPS = 636
)

// Target identifies a server and the credentials used to bind.
type Target struct {
	Host     string
	Port     int
	TLS      bool
	BindDN   string
	Password string
}

// URL returns the ldap:// or ldaps:// URL for t.
func (t Target) URL() string {
	scheme := "ldap"
	port := t.Port
	if t.TLS {
		scheme = "ldaps"
	}
	if port == 0 {
		port = PortLDAP
		if t.TLS {
			port = PortLDAPS
		}
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(t.Host, strconv.Itoa(port)))
}

// Attribute is one attribute of an entry.
type Attribute struct {
	Name   string
	Values []string
}

// Entry is a directory entry.
type Entry struct {
	DN         string
	Attributes []Attribute
}

// Get returns the values of the named attribute, matched case-insensitively.
func (e *Entry) Get(name string) []string {
	for _, a := range e.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a.Values
		}
	}
	return nil
}

// Result is the outcome of a search.
type Result struct {
	Entries []*Entry
}

// Len returns the number of entries.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}

// Scope of a search.
type Scope int

const (
	ScopeSubtree Scope = iota
	ScopeOneLevel
	ScopeBase
)

// ParseScope parses "sub", "one" or "base".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", "sub", "subtree":
		return ScopeSubtree, nil
	case "one", "onelevel", "single":
		return ScopeOneLevel, nil
	case "base":
		return ScopeBase, nil
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

// SearchRequest describes a search.
type SearchRequest struct {
	BaseDN     string
	Filter     string
	Attributes []string
	Scope      Scope
	SizeLimit  int
}

// ChangeOp is the kind of a modification.
type ChangeOp int

const (
	ChangeAdd ChangeOp = iota
	ChangeReplace
	ChangeDelete
)

// Change is one attribute modification.
type Change struct {
	Op     ChangeOp
	Name   string
	Values []string
}

// Difference is an attribute whose values differ between two entries.
type Difference struct {
	Name  string
	Left  []string
	Right []string
}

// Client performs directory operations for the shell.
type Client interface {
	Connect(ctx context.Context, t Target) error
	Target() Target
	Connected() bool
	Bound() bool
	Search(ctx context.Context, req SearchRequest) (*Result, error)
	Add(ctx context.Context, dn string, attrs []Attribute) error
	Modify(ctx context.Context, dn string, changes []Change) error
	Delete(ctx context.Context, dn string, recursive bool) (int, error)
	Rename(ctx context.Context, dn, newRDN, newParent string) error
	Compare(ctx context.Context, dn1, dn2 string, attrs []string) ([]Difference, error)
	RootDSE(ctx context.Context) (*Entry, error)
	Schema(ctx context.Context) (*Entry, error)
	Close()
}

// ParseAssignments turns "name=value" arguments into attributes, merging
// repeated names in first-seen order.
func ParseAssignments(args []string) ([]Attribute, error) {
	var attrs []Attribute
	index := make(map[string]int)
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid attribute %q: expected name=value", arg)
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			attrs[i].Values = append(attrs[i].Values, value)
			continue
		}
		index[key] = len(attrs)
		attrs = append(attrs, Attribute{Name: name, Values: []string{value}})
	}
	return attrs, nil
}

// Diff compares the attributes of two entries. When names is empty every
// attribute of either entry is compared. Value order is ignored.
func Diff(a, b *Entry, names []string) []Difference {
	if len(names) == 0 {
		seen := make(map[string]bool)
		for _, e := range []*Entry{a, b} {
			for _, attr := range e.Attributes {
				key := strings.ToLower(attr.Name)
				if !seen[key] {
					seen[key] = true
					names = append(names, attr.Name)
				}
			}
		}
	}
	var diffs []Difference
	for _, n := range names {
		left, right := a.Get(n), b.Get(n)
		if !sameValues(left, right) {
			diffs = append(diffs, Difference{Name: n, Left: left, Right: right})
		}
	}
	return diffs
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
