package analyzer

import (
	"strings"

	"github.com/psaab/ldapsh/pkg/catalog"
)

// Slot classifies an argument position.
type Slot int

const (
	SlotNone Slot = iota
	SlotHost
	SlotBaseDN
	SlotFilter
)

func (s Slot) String() string {
	switch s {
	case SlotHost:
		return "host"
	case SlotBaseDN:
		return "base_dn"
	case SlotFilter:
		return "filter"
	}
	return "none"
}

var hostCommands = map[string]bool{
	"search": true, "info": true, "compare": true, "schema": true,
	"add": true, "modify": true, "delete": true, "rename": true,
	"connect": true,
}

var baseDNCommands = map[string]bool{
	"search": true, "compare": true, "add": true,
	"modify": true, "delete": true, "rename": true,
}

// SlotFor returns the argument type at index for command. Index 0 is the
// command itself.
func SlotFor(command string, index int) Slot {
	switch {
	case index == 1 && hostCommands[command]:
		return SlotHost
	case index == 1 && command == "base":
		return SlotBaseDN
	case index == 2 && baseDNCommands[command]:
		return SlotBaseDN
	case index == 3 && command == "search":
		return SlotFilter
	}
	return SlotNone
}

// Parsed is a possibly incomplete command line.
type Parsed struct {
	Raw     string
	Command string
	// Known is set when Command is a catalog name.
	Known bool
	Args  []string
	// Index is the position of the token being typed; 0 is the command.
	Index int
	Slot  Slot
}

// Empty reports whether no command token has been typed.
func (p Parsed) Empty() bool { return p.Command == "" }

// Current returns the text of the token at Index, if it has been typed.
func (p Parsed) Current() string {
	switch {
	case p.Index == 0:
		return p.Command
	case p.Index-1 < len(p.Args):
		return p.Args[p.Index-1]
	}
	return ""
}

// Parse classifies text as typed so far. The last token is the one under
// the cursor, so "search ldap.example.com" is positioned on the host.
func Parse(text string) Parsed {
	p := Parsed{Raw: text}
	words := Words(text)
	if len(words) == 0 {
		return p
	}
	p.Command = words[0]
	_, p.Known = catalog.Lookup(p.Command)
	p.Args = words[1:]
	p.Index = len(words) - 1
	p.Slot = SlotFor(p.Command, p.Index)
	return p
}

// ParseAt classifies line up to the byte offset pos for completion. The
// returned token is the word under the cursor; it is empty when the cursor
// follows a blank.
func ParseAt(line string, pos int) (Parsed, Token) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(line) {
		pos = len(line)
	}
	before := line[:pos]
	tokens := Tokenize(before)

	var current Token
	completed := tokens
	if n := len(tokens); n > 0 && (tokens[n-1].End == len(before) && !endsWithBlank(before) || tokens[n-1].Open()) {
		current = tokens[n-1]
		completed = tokens[:n-1]
	} else {
		current = Token{Start: pos, End: pos}
	}

	p := Parsed{Raw: line, Index: len(completed)}
	if len(completed) > 0 {
		p.Command = completed[0].Text
		for _, t := range completed[1:] {
			p.Args = append(p.Args, t.Text)
		}
	} else {
		p.Command = current.Text
	}
	_, p.Known = catalog.Lookup(p.Command)
	p.Slot = SlotFor(p.Command, p.Index)
	return p, current
}

// Resolve looks up name in the catalog, returning close matches when it is
// not found.
func Resolve(name string) (*catalog.Entry, []string) {
	if e, ok := catalog.Lookup(name); ok {
		return e, nil
	}
	return nil, catalog.FuzzySuggest(name, 3)
}

func endsWithBlank(s string) bool {
	if s == "" {
		return false
	}
	if !strings.ContainsAny(s[len(s)-1:], " \t\n\r") {
		return false
	}
	// An escaped blank belongs to the word before it.
	return len(s) < 2 || s[len(s)-2] != '\\'
}
