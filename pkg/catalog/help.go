package catalog

import (
	"fmt"
	"io"
	"strings"
)

// Candidate holds a command name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

// WriteHelp prints aligned candidates to w in the order given.
func WriteHelp(w io.Writer, header string, candidates []Candidate) {
	maxWidth := 12
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// WriteEntry prints the syntax, examples and hints of a single entry.
func WriteEntry(w io.Writer, e *Entry) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %s\n", e.Name, e.Desc)
	fmt.Fprintf(&sb, "  Syntax: %s\n", e.Syntax)
	writeList(&sb, "Examples", e.Examples)
	writeList(&sb, "Next steps", e.NextSteps)
	writeList(&sb, "Common errors", e.CommonErrors)
	if len(e.Options) > 0 {
		fmt.Fprintf(&sb, "  Options: %s\n", strings.Join(e.Options, " "))
	}
	io.WriteString(w, sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "    %s\n", item)
	}
}
