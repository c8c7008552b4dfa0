package session

import (
	"fmt"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/catalog"
)

// CommandError is returned when a line cannot be matched to a catalog
// command or lacks required arguments.
type CommandError struct {
	Message   string
	Suggested []string
	Syntax    string
	Examples  []string
}

func (e *CommandError) Error() string { return e.Message }

// Analysis is the structural breakdown of a valid command line.
type Analysis struct {
	Command      string
	Arguments    []string
	Syntax       string
	Examples     []string
	NextSteps    []string
	CommonErrors []string
}

// CommandHelp returns the catalog entry for name. For unknown names the
// error carries the closest catalog command, if any.
func (c *Context) CommandHelp(name string) (*catalog.Entry, error) {
	e, suggested := analyzer.Resolve(name)
	if e != nil {
		return e, nil
	}
	return nil, unknownCommand(name, firstN(suggested, 1))
}

// AnalyzeCommand checks that line names a catalog command and supplies the
// required number of arguments.
func (c *Context) AnalyzeCommand(line string) (*Analysis, error) {
	words := analyzer.Words(line)
	if len(words) == 0 {
		return nil, &CommandError{Message: "Empty command"}
	}
	cmd := words[0]
	e, suggested := analyzer.Resolve(cmd)
	if e == nil {
		return nil, unknownCommand(cmd, suggested)
	}
	args := words[1:]
	if len(args) < catalog.MinArgs(e) {
		return nil, &CommandError{
			Message:  fmt.Sprintf("Not enough arguments for '%s'. Syntax: %s", cmd, e.Syntax),
			Syntax:   e.Syntax,
			Examples: copyStrings(e.Examples),
		}
	}
	return &Analysis{
		Command:      cmd,
		Arguments:    args,
		Syntax:       e.Syntax,
		Examples:     copyStrings(e.Examples),
		NextSteps:    copyStrings(e.NextSteps),
		CommonErrors: copyStrings(e.CommonErrors),
	}, nil
}

// ErrorHelp explains a failed command.
type ErrorHelp struct {
	Error      string
	Syntax     string
	Examples   []string
	Suggestion string
}

// HelpForError builds help for a command that failed with message.
func (c *Context) HelpForError(line, message string) ErrorHelp {
	h := ErrorHelp{Error: message}
	words := analyzer.Words(line)
	if len(words) > 0 {
		if e, ok := catalog.Lookup(words[0]); ok {
			h.Syntax = e.Syntax
			h.Examples = copyStrings(e.Examples)
		}
	}
	h.Suggestion, _ = catalog.ExplainError(message)
	return h
}

func unknownCommand(name string, suggested []string) *CommandError {
	if len(suggested) == 0 {
		return &CommandError{Message: fmt.Sprintf("Command '%s' not found.", name)}
	}
	return &CommandError{
		Message:   fmt.Sprintf("Command '%s' not found. Did you mean '%s'?", name, suggested[0]),
		Suggested: suggested,
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func copyStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
