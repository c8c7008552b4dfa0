// Package catalog defines the static command catalog for ldapsh.
//
// The catalog is the single source of truth for command names, syntax
// templates and the hint text used by:
//   - pkg/session (analysis and suggestions)
//   - pkg/validate (dry-run validation)
//   - pkg/overlay (the ? help overlay)
//   - pkg/completion (tab completion)
//
// Entries are never mutated after package initialisation. Callers that need
// to extend a hint list must copy it first.
package catalog

import (
	"strings"
)

// Entry documents one shell command.
type Entry struct {
	Name         string
	Desc         string
	Syntax       string
	Examples     []string
	NextSteps    []string
	CommonErrors []string
	Options      []string
	// Builtin marks commands handled by the shell itself rather than
	// by a directory server.
	Builtin bool
}

// entries is kept in catalog order. Ties in fuzzy matching and frequency
// ranking are broken by position in this slice.
var entries = []*Entry{
	{
		Name:   "search",
		Desc:   "Search for entries below a base DN",
		Syntax: "search <host> <base_dn> [<filter>] [options]",
		Examples: []string{
			"search ldap.example.com 'dc=example,dc=com'",
			"search ldap.example.com 'dc=example,dc=com' '(objectClass=person)' -a cn -a mail",
			"search ldap.example.com 'dc=example,dc=com' --tree",
		},
		NextSteps: []string{
			"Use --json, --ldif, or --csv to change output format",
			"Add -a attribute to specify attributes to retrieve",
			"Use --tree to view results in a tree structure",
		},
		CommonErrors: []string{
			"Missing quotes around base_dn or filter",
			"Invalid filter syntax",
			"Using special characters without escaping",
		},
		Options: []string{"-a", "--tree", "--json", "--ldif", "--csv", "--scope", "--limit"},
	},
	{
		Name:   "info",
		Desc:   "Show server information from the root DSE",
		Syntax: "info <host> [options]",
		Examples: []string{
			"info ldap.example.com",
			"info ldap.example.com -u 'cn=admin,dc=example,dc=com'",
		},
		NextSteps: []string{
			"Use schema command to view object class details",
			"Check server capabilities with --json option",
		},
		CommonErrors: []string{
			"Authentication required for detailed information",
		},
		Options: []string{"-u", "--json"},
	},
	{
		Name:   "compare",
		Desc:   "Compare the attributes of two entries",
		Syntax: "compare <host> <dn1> <dn2> [options]",
		Examples: []string{
			"compare ldap.example.com 'uid=user1,ou=people,dc=example,dc=com' 'uid=user2,ou=people,dc=example,dc=com'",
			"compare ldap.example.com 'uid=user1,ou=people,dc=example,dc=com' 'uid=user2,ou=people,dc=example,dc=com' -a mail -a cn",
		},
		NextSteps: []string{
			"Specify attributes to compare with -a option",
			"Use --json for machine-readable output",
		},
		CommonErrors: []string{
			"DNs must be properly quoted",
			"Both entries must exist",
		},
		Options: []string{"-a", "--json"},
	},
	{
		Name:   "schema",
		Desc:   "Show object classes and attribute types",
		Syntax: "schema <host> [<object_class>] [options]",
		Examples: []string{
			"schema ldap.example.com",
			"schema ldap.example.com person",
			"schema ldap.example.com --attr mail",
		},
		NextSteps: []string{
			"Look up specific object class details",
			"Check attribute syntax with --attr option",
		},
		CommonErrors: []string{
			"Object class or attribute may not exist",
		},
		Options: []string{"--attr", "--json"},
	},
	{
		Name:   "add",
		Desc:   "Add a new entry",
		Syntax: "add <host> <dn> [options]",
		Examples: []string{
			"add ldap.example.com 'cn=newuser,ou=people,dc=example,dc=com' --class inetOrgPerson --attr cn=newuser --attr sn=User",
			"add ldap.example.com 'cn=newgroup,ou=groups,dc=example,dc=com' --json group.json",
		},
		NextSteps: []string{
			"Use search to verify entry was added",
			"Add additional attributes with --attr option",
		},
		CommonErrors: []string{
			"Missing required attributes for object class",
			"DN already exists",
			"Parent DN doesn't exist",
		},
		Options: []string{"--class", "--attr", "--json"},
	},
	{
		Name:   "modify",
		Desc:   "Modify the attributes of an entry",
		Syntax: "modify <host> <dn> [options]",
		Examples: []string{
			"modify ldap.example.com 'cn=user1,ou=people,dc=example,dc=com' --add mail=user1@example2.com",
			"modify ldap.example.com 'cn=user1,ou=people,dc=example,dc=com' --replace mobile=555-1234",
			"modify ldap.example.com 'cn=user1,ou=people,dc=example,dc=com' --delete mail=user1@example.com",
		},
		NextSteps: []string{
			"Use search to verify changes",
			"Combine multiple modifications in one command",
		},
		CommonErrors: []string{
			"Attempting to modify non-existent entry",
			"Missing required attributes",
			"Deleting a value that doesn't exist",
		},
		Options: []string{"--add", "--replace", "--delete"},
	},
	{
		Name:   "delete",
		Desc:   "Delete an entry",
		Syntax: "delete <host> <dn> [options]",
		Examples: []string{
			"delete ldap.example.com 'cn=user1,ou=people,dc=example,dc=com'",
			"delete ldap.example.com 'ou=people,dc=example,dc=com' --recursive",
		},
		NextSteps: []string{
			"Use --recursive for subtree deletion",
			"Use search to verify deletion",
		},
		CommonErrors: []string{
			"Entry has children (use --recursive)",
			"Entry doesn't exist",
			"Insufficient permissions",
		},
		Options: []string{"--recursive", "-r"},
	},
	{
		Name:   "rename",
		Desc:   "Rename or move an entry",
		Syntax: "rename <host> <dn> <new_rdn> [options]",
		Examples: []string{
			"rename ldap.example.com 'cn=user1,ou=people,dc=example,dc=com' 'cn=user1renamed'",
			"rename ldap.example.com 'cn=user1,ou=people,dc=example,dc=com' 'cn=user1' --parent 'ou=admins,dc=example,dc=com'",
		},
		NextSteps: []string{
			"Use search to verify the rename",
			"Use --parent to move entry to different location",
		},
		CommonErrors: []string{
			"New RDN already exists",
			"Parent DN doesn't exist",
			"Missing required attributes in new RDN",
		},
		Options: []string{"--parent"},
	},
	{
		Name:    "connect",
		Desc:    "Connect to a directory server",
		Syntax:  "connect <host> [port] [bind_dn] [--ssl]",
		Builtin: true,
		Examples: []string{
			"connect ldap.example.com",
			"connect ldap.example.com 636 'cn=admin,dc=example,dc=com' --ssl",
		},
		NextSteps: []string{
			"Use base to set the default base DN",
			"Use search to list entries",
		},
		CommonErrors: []string{
			"Server unreachable or wrong port",
			"Invalid credentials",
		},
		Options: []string{"--ssl"},
	},
	{
		Name:    "base",
		Desc:    "Show or set the current base DN",
		Syntax:  "base [base_dn]",
		Builtin: true,
		Examples: []string{
			"base",
			"base 'ou=people,dc=example,dc=com'",
		},
	},
	{
		Name:    "validate",
		Desc:    "Check a command without executing it",
		Syntax:  "validate <command> [arguments]",
		Builtin: true,
		Examples: []string{
			"validate search ldap.example.com 'dc=example,dc=com' '(cn=admin)'",
			"validate delete ldap.example.com 'ou=old,dc=example,dc=com'",
		},
	},
	{
		Name:     "suggest",
		Desc:     "Show suggestions for the current session",
		Syntax:   "suggest",
		Builtin:  true,
		Examples: []string{"suggest"},
	},
	{
		Name:    "history",
		Desc:    "Show command or query history",
		Syntax:  "history [host|base_dn|search_filter]",
		Builtin: true,
		Examples: []string{
			"history",
			"history search_filter",
		},
	},
	{
		Name:    "help",
		Desc:    "Show help for commands",
		Syntax:  "help [command]",
		Builtin: true,
		Examples: []string{
			"help",
			"help search",
		},
	},
	{Name: "exit", Desc: "Exit the shell", Syntax: "exit", Builtin: true},
	{Name: "quit", Desc: "Exit the shell", Syntax: "quit", Builtin: true},
}

var byName = func() map[string]*Entry {
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}()

// Lookup returns the entry for name.
func Lookup(name string) (*Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Names returns all command names in catalog order.
func Names() []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// MinArgs returns the number of required arguments in the entry's syntax
// template. Bracketed tokens are optional.
func MinArgs(e *Entry) int {
	parts := strings.Fields(e.Syntax)
	required := 0
	for _, p := range parts {
		if strings.HasPrefix(p, "[") && strings.HasSuffix(p, "]") {
			continue
		}
		required++
	}
	if required == 0 {
		return 0
	}
	return required - 1
}

// OptionsFor returns the option names accepted by the named command.
func OptionsFor(name string) []string {
	e, ok := byName[name]
	if !ok {
		return nil
	}
	return e.Options
}

// Candidates returns help candidates for every catalog entry.
func Candidates() []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{Name: e.Name, Desc: e.Desc})
	}
	return candidates
}
