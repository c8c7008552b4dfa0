// Package validate checks shell commands without executing them.
package validate

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/psaab/ldapsh/pkg/analyzer"
	"github.com/psaab/ldapsh/pkg/session"
)

// Result is the outcome of a dry run. Error is set when the line could not
// be analysed; otherwise Validation is set and Warning/Suggestion may be.
type Result struct {
	Error             string
	SuggestedCommands []string

	Command      string
	Arguments    []string
	Syntax       string
	Examples     []string
	NextSteps    []string
	CommonErrors []string

	Validation string
	Preview    string
	Warning    string
	Suggestion string
}

// OK reports whether the command passed analysis.
func (r Result) OK() bool { return r.Error == "" }

// Validator dry-runs commands against a session's analyzer.
type Validator struct {
	ctx *session.Context
}

// New creates a Validator for ctx.
func New(ctx *session.Context) *Validator {
	return &Validator{ctx: ctx}
}

// Validate checks line. It never opens a connection and never changes the
// session.
func (v *Validator) Validate(line string) Result {
	a, err := v.ctx.AnalyzeCommand(line)
	if err != nil {
		r := Result{Error: err.Error()}
		var ce *session.CommandError
		if errors.As(err, &ce) {
			r.SuggestedCommands = ce.Suggested
			r.Syntax = ce.Syntax
			r.Examples = ce.Examples
		}
		return r
	}

	r := Result{
		Command:      a.Command,
		Arguments:    a.Arguments,
		Syntax:       a.Syntax,
		Examples:     a.Examples,
		NextSteps:    a.NextSteps,
		CommonErrors: a.CommonErrors,
	}
	switch a.Command {
	case "search":
		validateSearch(&r, line)
	case "add":
		r.Validation = "Add command structure looks valid"
		r.Preview = "Would add new entry to the directory"
	case "modify":
		r.Validation = "Modify command structure looks valid"
		r.Preview = "Would modify the specified entry"
	case "rename":
		r.Validation = "Rename command structure looks valid"
		r.Preview = "Would rename the specified entry"
	case "delete":
		validateDelete(&r)
	default:
		r.Validation = "Command structure looks valid"
		r.Preview = "Command would execute: " + strings.TrimSpace(line)
	}
	return r
}

// validateSearch checks the filter argument. Host and base DN are echoed in
// the suggestion exactly as typed, quotes included.
func validateSearch(r *Result, line string) {
	args := r.Arguments
	if len(args) > 2 && !isOption(args[2]) && !wrapped(args[2]) {
		r.Warning = "LDAP filter should be enclosed in parentheses"
		toks := analyzer.Tokenize(line)
		raw := func(t analyzer.Token) string { return line[t.Start:t.End] }
		r.Suggestion = fmt.Sprintf("Try: search %s %s %s",
			raw(toks[1]), raw(toks[2]), shellescape.Quote("("+args[2]+")"))
		return
	}
	r.Validation = "Search command looks valid"
	r.Preview = fmt.Sprintf("Would search %s with base DN %s", args[0], args[1])
}

func validateDelete(r *Result) {
	r.Validation = "Delete command structure looks valid"
	for _, a := range r.Arguments {
		if a == "--recursive" || a == "-r" {
			r.Warning = "This will delete the entry and all its children recursively"
			r.Preview = "Would recursively delete the specified entry and all children"
			return
		}
	}
	r.Warning = "Note: This will only delete the entry if it has no children"
	r.Suggestion = "Add --recursive flag to delete the entry and all its children"
	r.Preview = "Would delete the specified entry"
}

func wrapped(filter string) bool {
	return strings.HasPrefix(filter, "(") && strings.HasSuffix(filter, ")")
}

func isOption(s string) bool {
	return len(s) > 1 && s[0] == '-'
}

// Print writes r in the shell's plain text layout.
func Print(w io.Writer, r Result) {
	var sb strings.Builder
	if !r.OK() {
		fmt.Fprintf(&sb, "error: %s\n", r.Error)
		if len(r.SuggestedCommands) > 0 {
			fmt.Fprintf(&sb, "Did you mean: %s\n", strings.Join(r.SuggestedCommands, ", "))
		}
		if r.Syntax != "" {
			fmt.Fprintf(&sb, "Syntax: %s\n", r.Syntax)
		}
		writeList(&sb, "Examples", r.Examples)
		io.WriteString(w, sb.String())
		return
	}
	if r.Validation != "" {
		fmt.Fprintf(&sb, "%s\n", r.Validation)
	}
	if r.Warning != "" {
		fmt.Fprintf(&sb, "warning: %s\n", r.Warning)
	}
	if r.Suggestion != "" {
		fmt.Fprintf(&sb, "%s\n", r.Suggestion)
	}
	if r.Preview != "" {
		fmt.Fprintf(&sb, "Preview: %s\n", r.Preview)
	}
	fmt.Fprintf(&sb, "Syntax: %s\n", r.Syntax)
	writeList(&sb, "Next steps", r.NextSteps)
	io.WriteString(w, sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "  %s\n", item)
	}
}
