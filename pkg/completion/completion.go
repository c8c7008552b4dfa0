// Package completion provides tab completion for the shell.
package completion

import (
	"strings"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/catalog"
	"github.com/psaab/ldapsh/pkg/queryhistory"
)

// Ports offered for the connect command.
var Ports = []string{"389", "636"}

// Provider completes command lines from the catalog and query history. It
// keeps no state between calls.
type Provider struct {
	hist *queryhistory.Store
}

// New creates a Provider backed by hist. A nil store completes from
// defaults only.
func New(hist *queryhistory.Store) *Provider {
	return &Provider{hist: hist}
}

// Complete returns the candidates for text, the word being completed, given
// the full line and the byte span [begin, end) of text within it. Every
// candidate starts with text.
func (p *Provider) Complete(text, line string, begin, end int) []string {
	if end < begin || end > len(line) {
		end = len(line)
	}
	parsed, _ := analyzer.ParseAt(line, end)
	return filter(p.candidates(parsed, text), text)
}

func (p *Provider) candidates(parsed analyzer.Parsed, text string) []string {
	if parsed.Index == 0 {
		return catalog.Names()
	}
	if parsed.Command == "validate" {
		// Complete the embedded command as if it had been typed alone.
		inner := parsed
		inner.Command = ""
		if len(parsed.Args) > 0 {
			inner.Command = parsed.Args[0]
			inner.Args = parsed.Args[1:]
		}
		inner.Index = parsed.Index - 1
		inner.Slot = analyzer.SlotFor(inner.Command, inner.Index)
		return p.candidates(inner, text)
	}
	if strings.HasPrefix(text, "-") {
		return catalog.OptionsFor(parsed.Command)
	}
	switch parsed.Slot {
	case analyzer.SlotHost:
		return p.fromHistory(queryhistory.Host)
	case analyzer.SlotBaseDN:
		return p.fromHistory(queryhistory.BaseDN)
	case analyzer.SlotFilter:
		return p.filters()
	}
	switch {
	case parsed.Command == "connect" && parsed.Index == 2:
		return Ports
	case parsed.Command == "history" && parsed.Index == 1:
		names := make([]string, len(queryhistory.Categories))
		for i, c := range queryhistory.Categories {
			names[i] = string(c)
		}
		return names
	case parsed.Command == "help" && parsed.Index == 1:
		return catalog.Names()
	}
	return nil
}

// fromHistory returns remembered values, most recent first, or the defaults
// when nothing has been remembered yet.
func (p *Provider) fromHistory(c queryhistory.Category) []string {
	if p.hist != nil {
		if recent := p.hist.Recent(c, 0); len(recent) > 0 {
			return recent
		}
	}
	return queryhistory.Defaults(c)
}

func (p *Provider) filters() []string {
	var out []string
	if p.hist != nil {
		out = append(out, p.hist.Recent(queryhistory.Filter, 0)...)
	}
	out = append(out, queryhistory.Defaults(queryhistory.Filter)...)
	return append(out, queryhistory.Examples(queryhistory.Filter)...)
}

// filter keeps the items starting with prefix, dropping duplicates.
func filter(items []string, prefix string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if seen[item] || !strings.HasPrefix(item, prefix) {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
