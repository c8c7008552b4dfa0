// Package overlay renders the "?" help panel for a partially typed command.
package overlay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/catalog"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
)

const (
	// recentLimit is how many history values are offered per slot.
	recentLimit = 3
	// exampleCap bounds history values plus canonical examples.
	exampleCap = 6
	// frequentLimit bounds the frequently used command list.
	frequentLimit = 5
)

// Model is what the panel shows. Empty fields are omitted.
type Model struct {
	Title       string
	Text        string
	RecentUsage string
	Frequent    []string
	Options     []string
	Tips        []string
	Examples    []string
	Suggestions []string
}

var filterTips = []string{
	"Use * as a wildcard: (cn=user*)",
	"Combine filters with & (AND) or | (OR): (&(objectClass=person)(cn=admin))",
	"Use ! for NOT: (!(objectClass=computer))",
}

var commandOptions = map[string][]string{
	"search": {
		"--tree: Display results in a hierarchical tree",
		"--json: Output results in JSON format",
		"--ldif: Output results in LDIF format",
		"-a <attr>: Specify attributes to fetch (can be used multiple times)",
	},
	"modify": {
		"--add <attr>=<value>: Add a value to an attribute",
		"--replace <attr>=<value>: Replace an attribute value",
		"--delete <attr>: Delete an entire attribute",
		"--delete <attr>=<value>: Delete a specific attribute value",
	},
}

// Build returns the help for p. hist may be nil.
func Build(p analyzer.Parsed, ctx *session.Context, hist *queryhistory.Store) Model {
	if p.Empty() {
		return Model{
			Title:       "Available Commands",
			Text:        "Type a command to begin, or use 'help' for more information.",
			Suggestions: catalog.Names(),
			Frequent:    ctx.FrequentCommands(frequentLimit),
		}
	}

	e, err := ctx.CommandHelp(p.Command)
	if err != nil {
		m := Model{Title: "Unknown Command", Text: err.Error()}
		var ce *session.CommandError
		if errors.As(err, &ce) {
			_, m.Suggestions = analyzer.Resolve(p.Command)
		}
		return m
	}

	switch p.Slot {
	case analyzer.SlotHost:
		recent := recentValues(hist, queryhistory.Host)
		return Model{
			Title:       "LDAP Host",
			Text:        "Enter the LDAP server hostname or IP address.",
			Examples:    merge(recent, queryhistory.Examples(queryhistory.Host)),
			RecentUsage: usage("You've recently used these hosts", recent),
		}
	case analyzer.SlotBaseDN:
		recent := recentValues(hist, queryhistory.BaseDN)
		return Model{
			Title:       "Base DN",
			Text:        "Enter the base Distinguished Name (DN) for the operation.",
			Examples:    merge(recent, queryhistory.Examples(queryhistory.BaseDN)),
			RecentUsage: usage("Recent base DNs", recent),
			Tips:        []string{"Enclose the DN in quotes if it contains spaces or special characters"},
		}
	case analyzer.SlotFilter:
		recent := recentValues(hist, queryhistory.Filter)
		return Model{
			Title:       "LDAP Filter",
			Text:        "Enter an LDAP search filter.\nFilters should be enclosed in parentheses.",
			Examples:    merge(recent, queryhistory.Examples(queryhistory.Filter)),
			RecentUsage: usage("Recent filters", recent),
			Tips:        append([]string(nil), filterTips...),
		}
	}

	return Model{
		Title:    fmt.Sprintf("Help for '%s'", e.Name),
		Text:     "Syntax: " + e.Syntax,
		Examples: append([]string(nil), e.Examples...),
		Tips:     append([]string(nil), e.CommonErrors...),
		Options:  append([]string(nil), commandOptions[e.Name]...),
	}
}

func recentValues(hist *queryhistory.Store, c queryhistory.Category) []string {
	if hist == nil {
		return nil
	}
	return hist.Recent(c, recentLimit)
}

// merge returns recent values followed by examples, without duplicates,
// capped at exampleCap.
func merge(recent, examples []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{recent, examples} {
		for _, v := range list {
			if seen[v] || len(out) == exampleCap {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func usage(label string, recent []string) string {
	if len(recent) == 0 {
		return ""
	}
	return label + ": " + strings.Join(recent, ", ")
}
