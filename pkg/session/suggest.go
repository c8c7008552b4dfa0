package session

import (
	"github.com/psaab/ldapsh/pkg/catalog"
)

// Hints added on top of the catalog text.
var (
	ResultHints = []string{
		"Use --json to output results in JSON format",
		"Use --tree to view results in a hierarchical tree",
		"Use --csv to export results to CSV",
		"Use compare to compare two entries from the results",
	}
	AuthTip = "Use -u and -p options to authenticate for more privileges"
	TLSTip  = "Consider using --ssl for secure connection"
)

// SuggestionSet is what the shell shows for "suggest".
type SuggestionSet struct {
	NextCommands []string
	Examples     []string
	Tips         []string
	Corrections  []string
}

// Suggestions combines the current command's catalog hints with hints
// derived from session state. Catalog hints come first in catalog order,
// followed by result-set hints, the authentication tip and the TLS tip.
func (c *Context) Suggestions() SuggestionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s SuggestionSet
	if e, ok := catalog.Lookup(c.current.Command); ok {
		s.NextCommands = copyStrings(e.NextSteps)
		s.Examples = copyStrings(e.Examples)
		s.Tips = copyStrings(e.CommonErrors)
	}
	if rs := c.current.Results; rs != nil && rs.Len() > 0 {
		s.NextCommands = append(s.NextCommands, ResultHints...)
	}
	if c.state.Connected && !c.state.Authenticated {
		s.Tips = append(s.Tips, AuthTip)
	}
	if c.state.Connected && !c.state.TLS {
		s.Tips = append(s.Tips, TLSTip)
	}
	if n := len(c.errors); n > 0 {
		if msg, ok := catalog.ExplainError(c.errors[n-1].Message); ok {
			s.Corrections = append(s.Corrections, msg)
		}
	}
	return s
}
