// Package render formats directory results for the terminal.
package render

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/psaab/ldapsh/pkg/directory"
)

// Format selects an output format.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatLDIF
	FormatCSV
	FormatTree
)

// Renderer writes results to w.
type Renderer interface {
	Entries(w io.Writer, entries []*directory.Entry, f Format) error
	Entry(w io.Writer, e *directory.Entry, f Format) error
	Differences(w io.Writer, left, right string, diffs []directory.Difference, f Format) error
}

// Console renders for an interactive terminal.
type Console struct {
	header lipgloss.Style
	border lipgloss.Style
}

var _ Renderer = (*Console)(nil)

// NewConsole creates a Console whose colours follow the profile of out.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		border: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Entries writes a list of entries.
func (c *Console) Entries(w io.Writer, entries []*directory.Entry, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, entries)
	case FormatLDIF:
		return writeLDIF(w, entries)
	case FormatCSV:
		return writeCSV(w, entries)
	case FormatTree:
		return writeTree(w, entries)
	}
	if len(entries) == 0 {
		_, err := io.WriteString(w, "No entries found\n")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.border).
		Headers("DN", "Attribute", "Value").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.header
			}
			return lipgloss.NewStyle()
		})
	for _, e := range entries {
		dn := e.DN
		if len(e.Attributes) == 0 {
			t.Row(dn, "", "")
		}
		for _, a := range e.Attributes {
			for _, v := range a.Values {
				t.Row(dn, a.Name, printable(v))
				dn = ""
			}
		}
	}
	_, err := fmt.Fprintf(w, "%s\n%d entries\n", t.Render(), len(entries))
	return err
}

// Entry writes a single entry, one attribute per line.
func (c *Console) Entry(w io.Writer, e *directory.Entry, f Format) error {
	if f != FormatTable {
		return c.Entries(w, []*directory.Entry{e}, f)
	}
	var sb strings.Builder
	if e.DN != "" {
		sb.WriteString(c.header.Render("dn: "+e.DN) + "\n")
	}
	width := 0
	for _, a := range e.Attributes {
		if len(a.Name) > width {
			width = len(a.Name)
		}
	}
	for _, a := range e.Attributes {
		for _, v := range a.Values {
			fmt.Fprintf(&sb, "  %-*s  %s\n", width, a.Name, printable(v))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Differences writes the attributes that differ between two entries.
func (c *Console) Differences(w io.Writer, left, right string, diffs []directory.Difference, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"left": left, "right": right, "differences": diffs})
	}
	if len(diffs) == 0 {
		_, err := io.WriteString(w, "Entries are identical\n")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.border).
		Headers("Attribute", left, right)
	for _, d := range diffs {
		t.Row(d.Name, strings.Join(d.Left, "\n"), strings.Join(d.Right, "\n"))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

type jsonEntry struct {
	DN         string              `json:"dn"`
	Attributes map[string][]string `json:"attributes"`
}

func writeJSON(w io.Writer, entries []*directory.Entry) error {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonEntry{DN: e.DN, Attributes: make(map[string][]string, len(e.Attributes))}
		for _, a := range e.Attributes {
			je.Attributes[a.Name] = a.Values
		}
		out = append(out, je)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeLDIF(w io.Writer, entries []*directory.Entry) error {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(ldifLine("dn", e.DN))
		for _, a := range e.Attributes {
			for _, v := range a.Values {
				sb.WriteString(ldifLine(a.Name, v))
			}
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// ldifLine base64-encodes values that are not SAFE-STRINGs.
func ldifLine(name, value string) string {
	if safeLDIF(value) {
		return name + ": " + value + "\n"
	}
	return name + ":: " + base64.StdEncoding.EncodeToString([]byte(value)) + "\n"
}

func safeLDIF(v string) bool {
	if v == "" {
		return true
	}
	if v[0] == ' ' || v[0] == ':' || v[0] == '<' || v[len(v)-1] == ' ' {
		return false
	}
	for i := 0; i < len(v); i++ {
		if c := v[i]; c == 0 || c == '\n' || c == '\r' || c > 127 {
			return false
		}
	}
	return true
}

func writeCSV(w io.Writer, entries []*directory.Entry) error {
	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, a := range e.Attributes {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"dn"}, names...)); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{e.DN}
		for _, n := range names {
			row = append(row, strings.Join(e.Get(n), ";"))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeTree prints DNs indented under their parents.
func writeTree(w io.Writer, entries []*directory.Entry) error {
	paths := make([][]string, 0, len(entries))
	for _, e := range entries {
		rdns := splitDN(e.DN)
		// Root first.
		for i, j := 0, len(rdns)-1; i < j; i, j = i+1, j-1 {
			rdns[i], rdns[j] = rdns[j], rdns[i]
		}
		paths = append(paths, rdns)
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return strings.Join(paths[i], "\x00") < strings.Join(paths[j], "\x00")
	})
	minDepth := 0
	for i, p := range paths {
		if i == 0 || len(p) < minDepth {
			minDepth = len(p)
		}
	}
	var sb strings.Builder
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		indent := len(p) - minDepth
		if indent < 0 {
			indent = 0
		}
		if indent == 0 {
			sb.WriteString(joinReversed(p) + "\n")
			continue
		}
		fmt.Fprintf(&sb, "%s└─ %s\n", strings.Repeat("   ", indent-1), p[len(p)-1])
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func joinReversed(p []string) string {
	out := make([]string, len(p))
	for i, s := range p {
		out[len(p)-1-i] = s
	}
	return strings.Join(out, ",")
}

// splitDN splits a DN on unescaped commas.
func splitDN(dn string) []string {
	var parts []string
	var cur strings.Builder
	esc := false
	for _, r := range dn {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case r == '\\':
			cur.WriteRune(r)
			esc = true
		case r == ',':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

func printable(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 && v[i] != '\t' {
			return fmt.Sprintf("<%d bytes binary>", len(v))
		}
	}
	return v
}
